package memorydoc_test

import (
	"context"
	"time"

	"github.com/dogmatiq/docjournal/document"
	. "github.com/dogmatiq/docjournal/document/memorydoc"
	"github.com/dogmatiq/docjournal/internal/testing/storetest"
	"github.com/dogmatiq/docjournal/offset"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Store", func() {
	var store *Store

	storetest.Declare(
		func(ctx context.Context) storetest.Out {
			store = NewCluster("A", "B", "C").Open("A", "<database>")

			return storetest.Out{
				Store: store,
			}
		},
		func() {
			store.Close()
		},
	)
})

var _ = Describe("type Cluster", func() {
	var (
		ctx     context.Context
		cluster *Cluster
		a, b    *Store
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		DeferCleanup(cancel)

		cluster = NewCluster("A", "B", "C")
		a = cluster.Open("A", "<database>")
		b = cluster.Open("B", "<database>")

		err := a.CreateDatabase(ctx)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		a.Close()
		b.Close()
	})

	put := func(s *Store, id, body string, options ...document.WriteOption) {
		err := s.Update(
			ctx,
			func(tx document.Tx) error {
				return tx.Put(id, []byte(body))
			},
			options...,
		)
		Expect(err).ShouldNot(HaveOccurred())
	}

	load := func(s document.Reader, id string) (document.Document, bool) {
		doc, ok, err := s.Load(ctx, id)
		Expect(err).ShouldNot(HaveOccurred())
		return doc, ok
	}

	It("shares databases between nodes", func() {
		ok, err := b.DatabaseExists(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("replicates writes to all nodes", func() {
		put(a, "docs/1", "<body>")

		doc, ok := load(b, "docs/1")
		Expect(ok).To(BeTrue())
		Expect(doc.Body).To(Equal([]byte("<body>")))
		Expect(doc.ChangeVector).To(Equal(offset.Vector{"A": 1}))
	})

	It("assigns node-local etags to replicated documents", func() {
		put(b, "docs/1", "<body>")
		put(a, "docs/2", "<body>")

		doc, _ := load(a, "docs/2")
		Expect(doc.Etag).To(BeNumerically("==", 2))
		Expect(doc.ChangeVector).To(Equal(offset.Vector{"A": 2}))

		doc, _ = load(b, "docs/2")
		Expect(doc.Etag).To(BeNumerically("==", 2))
		Expect(doc.ChangeVector).To(Equal(offset.Vector{"A": 2}))
	})

	When("lag is enabled", func() {
		BeforeEach(func() {
			cluster.SetLag(true)
		})

		It("only applies writes to the accepting node", func() {
			put(a, "docs/1", "<body>")

			_, ok := load(b, "docs/1")
			Expect(ok).To(BeFalse())
		})

		It("applies pending writes when synced", func() {
			put(a, "docs/1", "<body>")
			cluster.Sync()

			_, ok := load(b, "docs/1")
			Expect(ok).To(BeTrue())
		})

		It("signals watches on other nodes when synced", func() {
			w := b.WatchPrefix("docs/")
			defer w.Close()

			put(a, "docs/1", "<body>")
			Expect(w.Ready()).NotTo(Receive())

			cluster.Sync()
			Expect(w.Ready()).To(Receive())
		})

		It("replicates to other nodes as required by the write concern", func() {
			put(a, "docs/1", "<body>", document.WaitForReplicas(1))

			_, ok := load(b, "docs/1")
			Expect(ok).To(BeTrue())
		})

		It("evaluates cluster-wide transactions against the agreed state", func() {
			put(a, "docs/1", "<body>")

			err := b.Update(
				ctx,
				func(tx document.Tx) error {
					return tx.Insert("docs/1", nil)
				},
				document.ClusterWide(),
			)
			Expect(err).To(MatchError(document.ErrDocumentExists))
		})

		It("evaluates regular transactions against the local state", func() {
			put(a, "docs/1", "<body>")

			err := b.Update(
				ctx,
				func(tx document.Tx) error {
					_, ok, err := tx.Load("docs/1")
					Expect(ok).To(BeFalse())
					return err
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("does not regress a document when an older revision arrives late", func() {
			put(a, "docs/1", "<old>")
			put(b, "docs/1", "<new>", document.ClusterWide())
			cluster.Sync()

			doc, _ := load(b, "docs/1")
			Expect(doc.Body).To(Equal([]byte("<new>")))
			Expect(doc.ChangeVector).To(Equal(offset.Vector{"A": 1, "B": 1}))
		})

		It("exposes lagging replicas via Replicas()", func() {
			put(a, "docs/1", "<body>")

			var found []string
			for _, r := range b.Replicas() {
				if _, ok := load(r, "docs/1"); ok {
					found = append(found, r.ReplicaID())
				}
			}

			Expect(found).To(ConsistOf("A"))
		})
	})

	Describe("func StartingUp()", func() {
		It("fails database operations until the count is exhausted", func() {
			s := cluster.Open("A", "<other>")
			defer s.Close()

			cluster.StartingUp("<other>", 2)

			err := s.CreateDatabase(ctx)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))

			_, err = s.DatabaseExists(ctx)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))

			err = s.CreateDatabase(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func IndexesStartingUp()", func() {
		It("fails index creation until the count is exhausted", func() {
			cluster.IndexesStartingUp("<database>", 2)

			index := document.Index{
				Name:       "<index>",
				Collection: "<collection>/",
			}

			err := a.CreateIndex(ctx, index)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))

			err = b.CreateIndex(ctx, index)
			Expect(err).To(MatchError(document.ErrDatabaseUnavailable))

			err = a.CreateIndex(ctx, index)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = b.WatchIndex("<index>")
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func Close()", func() {
		It("causes subsequent updates to fail", func() {
			a.Close()

			err := a.Update(ctx, func(tx document.Tx) error { return nil })
			Expect(err).To(MatchError(document.ErrClosed))
		})
	})
})
