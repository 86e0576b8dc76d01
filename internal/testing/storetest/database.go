package storetest

import (
	"context"

	"github.com/dogmatiq/docjournal/document"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func declareDatabaseTests(ctx *context.Context, out *Out) {
	ginkgo.Describe("func DatabaseExists()", func() {
		ginkgo.It("returns false if the database has not been created", func() {
			ok, err := out.Store.DatabaseExists(*ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("returns true if the database has been created", func() {
			createDatabase(*ctx, out.Store)

			ok, err := out.Store.DatabaseExists(*ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("func CreateDatabase()", func() {
		ginkgo.It("returns ErrDatabaseExists if the database already exists", func() {
			createDatabase(*ctx, out.Store)

			err := out.Store.CreateDatabase(*ctx)
			gomega.Expect(err).To(gomega.MatchError(document.ErrDatabaseExists))
		})
	})

	ginkgo.Describe("func Load()", func() {
		ginkgo.It("returns ErrDatabaseNotFound if the database has not been created", func() {
			_, _, err := out.Store.Load(*ctx, "<id>")
			gomega.Expect(err).To(gomega.MatchError(document.ErrDatabaseNotFound))
		})
	})

	ginkgo.Describe("func Replicas()", func() {
		ginkgo.It("includes the store's own replica", func() {
			var replicas []string
			for _, r := range out.Store.Replicas() {
				replicas = append(replicas, r.ReplicaID())
			}

			gomega.Expect(replicas).To(gomega.ContainElement(out.Store.ReplicaID()))
		})
	})
}

func declareTransactionTests(ctx *context.Context, out *Out) {
	ginkgo.Describe("func Update()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)
		})

		ginkgo.It("stores documents", func() {
			put(*ctx, out.Store, "docs/1")

			doc, ok, err := out.Store.Load(*ctx, "docs/1")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(doc.ID).To(gomega.Equal("docs/1"))
			gomega.Expect(doc.Body).To(gomega.Equal([]byte("<body of docs/1>")))
			gomega.Expect(doc.ChangeVector).To(gomega.HaveKey(out.Store.ReplicaID()))
			gomega.Expect(doc.Etag).To(gomega.BeNumerically(">", 0))
		})

		ginkgo.It("assigns increasing etags", func() {
			put(*ctx, out.Store, "docs/1")
			put(*ctx, out.Store, "docs/2")

			a, _, err := out.Store.Load(*ctx, "docs/1")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			b, _, err := out.Store.Load(*ctx, "docs/2")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			gomega.Expect(b.Etag).To(gomega.BeNumerically(">", a.Etag))
		})

		ginkgo.It("rolls back all changes if fn returns an error", func() {
			put(*ctx, out.Store, "docs/1")

			err := out.Store.Update(*ctx, func(tx document.Tx) error {
				if err := tx.Put("docs/2", nil); err != nil {
					return err
				}
				return tx.Insert("docs/1", nil)
			})
			gomega.Expect(err).To(gomega.MatchError(document.ErrDocumentExists))

			_, ok, err := out.Store.Load(*ctx, "docs/2")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("makes staged changes visible within the transaction", func() {
			err := out.Store.Update(*ctx, func(tx document.Tx) error {
				if err := tx.Put("docs/1", []byte("<body>")); err != nil {
					return err
				}

				doc, ok, err := tx.Load("docs/1")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(doc.Body).To(gomega.Equal([]byte("<body>")))

				return nil
			})
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})

		ginkgo.It("only creates documents with PutIfAbsent() once", func() {
			var created []bool

			for i := 0; i < 2; i++ {
				err := out.Store.Update(*ctx, func(tx document.Tx) error {
					ok, err := tx.PutIfAbsent("docs/1", []byte("<body>"))
					created = append(created, ok)
					return err
				})
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			}

			gomega.Expect(created).To(gomega.Equal([]bool{true, false}))
		})

		ginkgo.It("deletes documents", func() {
			put(*ctx, out.Store, "docs/1")

			err := out.Store.Update(*ctx, func(tx document.Tx) error {
				return tx.Delete("docs/1")
			})
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			_, ok, err := out.Store.Load(*ctx, "docs/1")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("does not fail when deleting a document that does not exist", func() {
			err := out.Store.Update(*ctx, func(tx document.Tx) error {
				return tx.Delete("docs/1")
			})
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})

		ginkgo.It("accepts cluster-wide transactions", func() {
			err := out.Store.Update(
				*ctx,
				func(tx document.Tx) error {
					return tx.Put("docs/1", nil)
				},
				document.ClusterWide(),
			)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})

		ginkgo.It("returns ErrInsufficientReplicas if the write concern can not be satisfied", func() {
			n := len(out.Store.Replicas())

			err := out.Store.Update(
				*ctx,
				func(tx document.Tx) error {
					return tx.Put("docs/1", nil)
				},
				document.WaitForReplicas(n),
			)
			gomega.Expect(err).To(gomega.MatchError(document.ErrInsufficientReplicas))
		})
	})
}

func declareScanTests(ctx *context.Context, out *Out) {
	ginkgo.Describe("func Scan()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)
			put(*ctx, out.Store, "b/3", "a/1", "b/1", "b/2", "c/1")
		})

		ginkgo.It("returns documents with the prefix in ID order", func() {
			docs, err := out.Store.Scan(*ctx, "b/", "", 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{"b/1", "b/2", "b/3"}))
		})

		ginkgo.It("starts after the given ID", func() {
			docs, err := out.Store.Scan(*ctx, "b/", "b/1", 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{"b/2", "b/3"}))
		})

		ginkgo.It("honors the limit", func() {
			docs, err := out.Store.Scan(*ctx, "b/", "", 2)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{"b/1", "b/2"}))
		})

		ginkgo.It("returns nothing if no documents match", func() {
			docs, err := out.Store.Scan(*ctx, "x/", "", 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(docs).To(gomega.BeEmpty())
		})
	})
}
