//go:build cgo

package docjournal_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/document/sqldoc"
	"github.com/dogmatiq/docjournal/internal/testing/boltdbtest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func OpenStore() (with cgo)", func() {
	It("opens an SQLite store", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		path, remove := boltdbtest.TempPath()
		DeferCleanup(remove)

		s, err := OpenStore(ctx, Config{
			ServerEndpoints: []string{"sqlite://" + path + "?database=journal&replica=B"},
		})
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s).To(BeAssignableToTypeOf(&sqldoc.Store{}))
		Expect(s.ReplicaID()).To(Equal("B"))

		err = s.CreateDatabase(ctx)
		Expect(err).ShouldNot(HaveOccurred())

		err = s.Update(ctx, func(tx document.Tx) error {
			return tx.Put("docs/1", []byte("<body>"))
		})
		Expect(err).ShouldNot(HaveOccurred())

		doc, ok, err := s.Load(ctx, "docs/1")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(doc.Body).To(Equal([]byte("<body>")))
	})
})
