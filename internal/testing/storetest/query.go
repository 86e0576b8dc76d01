package storetest

import (
	"context"
	"strings"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/offset"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// colorIndex indexes documents in the "things/" collection by the color
// encoded in their ID, such as "things/red-1".
var colorIndex = document.Index{
	Name:       "ThingsByColor",
	Collection: "things/",
	Terms: func(doc document.Document) ([]string, error) {
		id := strings.TrimPrefix(doc.ID, "things/")
		color, _, _ := strings.Cut(id, "-")
		return []string{color}, nil
	},
}

func declareQueryTests(ctx *context.Context, out *Out) {
	ginkgo.Describe("func Query()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)

			err := out.Store.CreateIndex(*ctx, colorIndex)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			put(*ctx, out.Store, "things/red-1")
			put(*ctx, out.Store, "others/red-1")
			put(*ctx, out.Store, "things/blue-1")
			put(*ctx, out.Store, "things/red-2")
		})

		ginkgo.It("returns all documents in the index in etag order", func() {
			docs, err := out.Store.Query(*ctx, document.Query{Index: colorIndex.Name}, 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{
				"things/red-1",
				"things/blue-1",
				"things/red-2",
			}))
		})

		ginkgo.It("filters by term", func() {
			docs, err := out.Store.Query(*ctx, document.Query{Index: colorIndex.Name, Term: "red"}, 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{
				"things/red-1",
				"things/red-2",
			}))
		})

		ginkgo.It("honors the limit", func() {
			docs, err := out.Store.Query(*ctx, document.Query{Index: colorIndex.Name}, 1)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{"things/red-1"}))
		})

		ginkgo.It("excludes documents that are covered by the lower bound", func() {
			first, _, err := out.Store.Load(*ctx, "things/blue-1")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			q := document.Query{Index: colorIndex.Name}
			err = offset.ApplyAsLowerBound(&q, first.ChangeVector)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			docs, err := out.Store.Query(*ctx, q, 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(docs)).To(gomega.Equal([]string{"things/red-2"}))
		})

		ginkgo.It("includes documents revised on replicas that are not in the lower bound", func() {
			q := document.Query{Index: colorIndex.Name}
			err := offset.ApplyAsLowerBound(&q, offset.Vector{"<unknown>": 1000})
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			docs, err := out.Store.Query(*ctx, q, 0)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(docs).To(gomega.HaveLen(3))
		})

		ginkgo.It("returns ErrIndexNotFound if the index has not been created", func() {
			_, err := out.Store.Query(*ctx, document.Query{Index: "<unknown>"}, 0)
			gomega.Expect(err).To(gomega.MatchError(document.ErrIndexNotFound))
		})
	})

	ginkgo.Describe("func CreateIndex()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)
		})

		ginkgo.It("is idempotent", func() {
			err := out.Store.CreateIndex(*ctx, colorIndex)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = out.Store.CreateIndex(*ctx, colorIndex)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})
	})
}

func declareWatchTests(ctx *context.Context, out *Out) {
	ginkgo.Describe("func WatchPrefix()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)
		})

		ginkgo.It("is signaled when a matching document changes", func() {
			w := out.Store.WatchPrefix("things/")
			defer w.Close()

			put(*ctx, out.Store, "things/red-1")

			gomega.Eventually(w.Ready()).Should(gomega.Receive())
		})

		ginkgo.It("is not signaled when other documents change", func() {
			w := out.Store.WatchPrefix("things/")
			defer w.Close()

			put(*ctx, out.Store, "others/red-1")

			gomega.Consistently(w.Ready(), out.AssumeBlockingDuration).ShouldNot(gomega.Receive())
		})

		ginkgo.It("coalesces signals", func() {
			w := out.Store.WatchPrefix("things/")
			defer w.Close()

			put(*ctx, out.Store, "things/red-1")
			put(*ctx, out.Store, "things/red-2")

			gomega.Eventually(w.Ready()).Should(gomega.Receive())
			gomega.Consistently(w.Ready(), out.AssumeBlockingDuration).ShouldNot(gomega.Receive())
		})

		ginkgo.It("is not signaled after it is closed", func() {
			w := out.Store.WatchPrefix("things/")
			w.Close()

			put(*ctx, out.Store, "things/red-1")

			gomega.Consistently(w.Ready(), out.AssumeBlockingDuration).ShouldNot(gomega.Receive())
		})

		ginkgo.It("closes the done channel when the store is closed", func() {
			w := out.Store.WatchPrefix("things/")
			defer w.Close()

			err := out.Store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			gomega.Eventually(w.Done()).Should(gomega.BeClosed())
		})
	})

	ginkgo.Describe("func WatchIndex()", func() {
		ginkgo.BeforeEach(func() {
			createDatabase(*ctx, out.Store)

			err := out.Store.CreateIndex(*ctx, colorIndex)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})

		ginkgo.It("is signaled when a document in the index changes", func() {
			w, err := out.Store.WatchIndex(colorIndex.Name)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			defer w.Close()

			put(*ctx, out.Store, "things/red-1")

			gomega.Eventually(w.Ready()).Should(gomega.Receive())
		})

		ginkgo.It("returns ErrIndexNotFound if the index has not been created", func() {
			_, err := out.Store.WatchIndex("<unknown>")
			gomega.Expect(err).To(gomega.MatchError(document.ErrIndexNotFound))
		})
	})
}
