package journal_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"time"

	"github.com/dogmatiq/docjournal/envelope"
	. "github.com/dogmatiq/docjournal/fixtures"
	. "github.com/dogmatiq/docjournal/journal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Replay()", func() {
	var e *env

	BeforeEach(func() {
		e = setup()
	})

	It("replays every event exactly once, in order", func() {
		for seq := int64(1); seq <= 10; seq++ {
			e.append(e.journal, write("user-1", seq, 1))
		}

		Expect(e.replay(e.journal, "user-1", 1, 10)).To(Equal(
			[]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		))
	})

	It("replays events across multiple pages", func() {
		e.append(e.journal, write("user-1", 1, 600))

		seqs := e.replay(e.journal, "user-1", 1, 600)
		Expect(seqs).To(HaveLen(600))
		Expect(seqs[0]).To(BeNumerically("==", 1))
		Expect(seqs[599]).To(BeNumerically("==", 600))
	})

	It("restricts the events to the requested range", func() {
		e.append(e.journal, write("user-1", 1, 10))

		Expect(e.replay(e.journal, "user-1", 3, 5)).To(Equal([]int64{3, 4, 5}))
	})

	It("stops after the maximum number of events", func() {
		e.append(e.journal, write("user-1", 1, 10))

		var seqs []int64
		err := e.journal.Replay(e.ctx, "user-1", 2, 10, 3, func(env envelope.Envelope) error {
			seqs = append(seqs, env.SequenceNr)
			return nil
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(seqs).To(Equal([]int64{2, 3, 4}))
	})

	It("does not call the function if the maximum is zero", func() {
		e.append(e.journal, write("user-1", 1, 10))

		err := e.journal.Replay(e.ctx, "user-1", 1, 10, 0, func(envelope.Envelope) error {
			Fail("unexpected call")
			return nil
		})
		Expect(err).ShouldNot(HaveOccurred())
	})

	It("returns immediately if the entity has no events", func() {
		Expect(e.replay(e.journal, "user-1", 1, 10)).To(BeEmpty())
	})

	It("skips deleted events", func() {
		e.append(e.journal, write("user-1", 1, 5))

		err := e.journal.DeleteUpTo(e.ctx, "user-1", 2)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(e.replay(e.journal, "user-1", 1, 5)).To(Equal([]int64{3, 4, 5}))
	})

	It("returns the error from the function", func() {
		e.append(e.journal, write("user-1", 1, 3))

		err := e.journal.Replay(e.ctx, "user-1", 1, 3, math.MaxInt64, func(envelope.Envelope) error {
			return errors.New("<error>")
		})
		Expect(err).To(MatchError("<error>"))
	})

	It("returns an error if an event can not be unmarshaled", func() {
		type unknown struct{}

		writer := &Journal{
			Store:     e.store,
			Marshaler: NewMarshaler(reflect.TypeOf(unknown{})),
		}

		results, err := writer.Append(
			e.ctx,
			[]AtomicWrite{{
				EntityID: "user-1",
				Events:   []envelope.Envelope{NewEnvelope("user-1", 1, unknown{})},
			}},
		)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(results[0]).ShouldNot(HaveOccurred())

		err = e.journal.Replay(e.ctx, "user-1", 1, 1, 1, func(envelope.Envelope) error {
			Fail("unexpected call")
			return nil
		})
		Expect(err).To(MatchError(ContainSubstring("unable to unmarshal event record")))
	})

	When("the local replica is lagging", func() {
		var lagging *Journal

		BeforeEach(func() {
			lagging = e.journalOn("B")

			e.append(e.journal, write("user-1", 1, 2))
			e.cluster.SetLag(true)
			e.append(e.journal, write("user-1", 3, 2))
		})

		It("waits for the missing events to arrive", func() {
			go func() {
				time.Sleep(20 * time.Millisecond)
				e.cluster.Sync()
			}()

			Expect(e.replay(lagging, "user-1", 1, 4)).To(Equal([]int64{1, 2, 3, 4}))
		})

		It("returns an error if the context is canceled while waiting", func() {
			ctx, cancel := context.WithTimeout(e.ctx, 20*time.Millisecond)
			defer cancel()

			var seqs []int64
			err := lagging.Replay(ctx, "user-1", 1, 4, math.MaxInt64, func(env envelope.Envelope) error {
				seqs = append(seqs, env.SequenceNr)
				return nil
			})
			Expect(err).To(Equal(context.DeadlineExceeded))
			Expect(seqs).To(Equal([]int64{1, 2}))
		})
	})
})
