package journal_test

import (
	"github.com/dogmatiq/docjournal/record"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func DeleteUpTo()", func() {
	var e *env

	BeforeEach(func() {
		e = setup()
	})

	It("deletes events up to and including the given sequence number", func() {
		e.append(e.journal, write("user-1", 1, 5))
		e.append(e.journal, write("user-2", 1, 5))

		err := e.journal.DeleteUpTo(e.ctx, "user-1", 3)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(e.replay(e.journal, "user-1", 1, 5)).To(Equal([]int64{4, 5}))
		Expect(e.replay(e.journal, "user-2", 1, 5)).To(Equal([]int64{1, 2, 3, 4, 5}))
	})

	It("deletes more events than fit in a single transaction", func() {
		e.append(e.journal, write("user-1", 1, 1030))

		err := e.journal.DeleteUpTo(e.ctx, "user-1", 1029)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(e.replay(e.journal, "user-1", 1, 1030)).To(Equal([]int64{1030}))
	})

	It("retains the unique-entity marker", func() {
		e.append(e.journal, write("user-1", 1, 5))

		err := e.journal.DeleteUpTo(e.ctx, "user-1", 5)
		Expect(err).ShouldNot(HaveOccurred())

		_, ok, err := e.store.Load(e.ctx, record.NewKeys("").UniqueEntityID("user-1"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("does nothing if there are no events", func() {
		err := e.journal.DeleteUpTo(e.ctx, "user-1", 5)
		Expect(err).ShouldNot(HaveOccurred())
	})
})
