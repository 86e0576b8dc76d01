package docjournal_test

import (
	"context"
	"math"
	"time"

	. "github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/document/memorydoc"
	"github.com/dogmatiq/docjournal/envelope"
	. "github.com/dogmatiq/docjournal/fixtures"
	"github.com/dogmatiq/docjournal/journal"
	"github.com/dogmatiq/docjournal/snapshot"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Engine", func() {
	var (
		ctx     context.Context
		cluster *memorydoc.Cluster
		store   *memorydoc.Store
		logger  *logging.BufferedLogger
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		DeferCleanup(cancel)

		cluster = memorydoc.NewCluster("A")
		store = cluster.Open("A", "<database>")
		DeferCleanup(store.Close)

		logger = &logging.BufferedLogger{}
	})

	newEngine := func(options ...EngineOption) *Engine {
		return New(
			store,
			append(
				[]EngineOption{
					WithMarshaler(Marshaler),
					WithLogger(logger),
					WithBackoffStrategy(backoff.Constant(time.Millisecond)),
				},
				options...,
			)...,
		)
	}

	appendEvents := func(e *Engine, entityID string, from int64, n int, tags ...string) {
		results, err := e.Journal().Append(
			ctx,
			[]journal.AtomicWrite{{
				EntityID: entityID,
				Events:   NewEnvelopes(entityID, from, n, tags...),
			}},
		)
		ExpectWithOffset(1, err).ShouldNot(HaveOccurred())
		ExpectWithOffset(1, results[0]).ShouldNot(HaveOccurred())
	}

	Describe("func Run()", func() {
		It("creates the database", func() {
			err := newEngine().Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			ok, err := store.DatabaseExists(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "⚙    database created",
				},
			))
		})

		It("succeeds if the database already exists", func() {
			err := store.CreateDatabase(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			err = newEngine().Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("retries while the database is unavailable", func() {
			cluster.StartingUp("<database>", 2)

			err := newEngine().Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "⚙ ↻  initialize storage ● database is unavailable ● next retry in 1ms",
				},
			))
		})

		It("gives up if the database remains unavailable", func() {
			cluster.StartingUp("<database>", 10)

			err := newEngine().Run(ctx)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))
		})

		It("does not create the database if automatic initialization is disabled", func() {
			err := newEngine(WithAutoInitializeStorage(false)).Run(ctx)
			Expect(err).To(MatchError(document.ErrDatabaseNotFound))

			ok, err := store.DatabaseExists(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("fails operations if initialization fails", func() {
			e := newEngine(WithAutoInitializeStorage(false))

			result := make(chan error, 1)
			go func() {
				_, err := e.Journal().ReadHighestSequenceNr(ctx, "user-1")
				result <- err
			}()

			runErr := e.Run(ctx)
			Expect(runErr).Should(HaveOccurred())

			Eventually(result).Should(Receive(Equal(runErr)))

			_, err := e.Journal().ReadHighestSequenceNr(ctx, "user-1")
			Expect(err).To(Equal(runErr))
		})
	})

	Describe("func EnsureIndexesReady()", func() {
		It("is idempotent", func() {
			e := newEngine()

			err := e.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			err = e.EnsureIndexesReady(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("retries while the database is unavailable", func() {
			cluster.IndexesStartingUp("<database>", 2)

			err := newEngine().Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(logger.Messages()).To(ContainElement(
				HaveField("Message", HavePrefix("⚙ ↻  create the ")),
			))
		})

		It("gives up if the database remains unavailable", func() {
			cluster.IndexesStartingUp("<database>", 100)

			err := newEngine().Run(ctx)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))
		})
	})

	When("the engine is not yet ready", func() {
		It("stashes operations until it is", func() {
			e := newEngine()

			result := make(chan error, 1)
			go func() {
				_, err := e.Journal().Append(
					ctx,
					[]journal.AtomicWrite{{
						EntityID: "user-1",
						Events:   NewEnvelopes("user-1", 1, 1),
					}},
				)
				result <- err
			}()

			Consistently(result, 20*time.Millisecond).ShouldNot(Receive())

			err := e.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(result).Should(Receive(BeNil()))
		})

		It("returns ErrStashFull if too many operations are waiting", func() {
			e := newEngine(WithStashSize(1))

			result := make(chan error, 1)
			go func() {
				_, err := e.Journal().ReadHighestSequenceNr(ctx, "user-1")
				result <- err
			}()

			Eventually(e.WaitingOperations).Should(Equal(1))

			_, err := e.Journal().ReadHighestSequenceNr(ctx, "user-1")
			Expect(err).To(Equal(ErrStashFull))

			err = e.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(result).Should(Receive(BeNil()))
		})

		It("returns the context error if ctx is canceled while waiting", func() {
			e := newEngine()

			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			_, err := e.Journal().ReadHighestSequenceNr(waitCtx, "user-1")
			Expect(err).To(Equal(context.DeadlineExceeded))
		})
	})

	When("the engine is ready", func() {
		var e *Engine

		BeforeEach(func() {
			e = newEngine()

			err := e.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("appends, reads and deletes events", func() {
			appendEvents(e, "user-1", 1, 3)

			n, err := e.Journal().ReadHighestSequenceNr(ctx, "user-1")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(n).To(BeNumerically("==", 3))

			err = e.Journal().DeleteUpTo(ctx, "user-1", 2)
			Expect(err).ShouldNot(HaveOccurred())

			var seqs []int64
			err = e.Journal().Replay(
				ctx,
				"user-1",
				1,
				math.MaxInt64,
				math.MaxInt64,
				func(env envelope.Envelope) error {
					seqs = append(seqs, env.SequenceNr)
					return nil
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(seqs).To(Equal([]int64{3}))
		})

		It("replays without waiting when to is beyond the highest sequence number", func() {
			e := newEngine(WithReadTimeout(500 * time.Millisecond))

			err := e.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			appendEvents(e, "user-1", 1, 3)

			var seqs []int64
			err = e.Journal().Replay(
				ctx,
				"user-1",
				1,
				math.MaxInt64,
				math.MaxInt64,
				func(env envelope.Envelope) error {
					seqs = append(seqs, env.SequenceNr)
					return nil
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(seqs).To(Equal([]int64{1, 2, 3}))

			err = e.Journal().Replay(
				ctx,
				"user-2",
				1,
				math.MaxInt64,
				math.MaxInt64,
				func(env envelope.Envelope) error {
					Fail("unexpected event")
					return nil
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("saves and loads snapshots", func() {
			md := snapshot.Metadata{
				EntityID:   "user-1",
				SequenceNr: 5,
			}

			err := e.Snapshots().Save(ctx, md, UserState{Name: "Bob", Renames: 2})
			Expect(err).ShouldNot(HaveOccurred())

			snap, ok, err := e.Snapshots().Load(ctx, "user-1", snapshot.LatestCriteria())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(snap.State).To(Equal(UserState{Name: "Bob", Renames: 2}))

			err = e.Snapshots().Delete(ctx, snap.Metadata)
			Expect(err).ShouldNot(HaveOccurred())

			err = e.Snapshots().DeleteMatching(ctx, "user-1", snapshot.LatestCriteria())
			Expect(err).ShouldNot(HaveOccurred())

			_, ok, err = e.Snapshots().Load(ctx, "user-1", snapshot.LatestCriteria())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("queries events", func() {
			appendEvents(e, "user-1", 1, 2, "red")
			appendEvents(e, "user-2", 1, 1)

			s, err := e.Queries().CurrentEventsByTag(ctx, "red", nil)
			Expect(err).ShouldNot(HaveOccurred())
			defer s.Close()

			var n int
			for {
				_, ok, err := s.Next(ctx)
				Expect(err).ShouldNot(HaveOccurred())
				if !ok {
					break
				}
				n++
			}

			Expect(n).To(Equal(2))
		})

		It("isolates engines with different entity namespaces", func() {
			other := newEngine(WithEntityNamespace("other"))

			err := other.Run(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			appendEvents(e, "user-1", 1, 3)

			n, err := other.Journal().ReadHighestSequenceNr(ctx, "user-1")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(n).To(BeZero())

			appendEvents(other, "user-1", 1, 1)
		})
	})
})
