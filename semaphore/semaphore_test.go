package semaphore_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/docjournal/semaphore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Semaphore", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
		DeferCleanup(cancel)
	})

	It("blocks when the limit is reached", func() {
		s := New(1)
		Expect(s.Limit()).To(Equal(1))

		err := s.Acquire(ctx)
		Expect(err).ShouldNot(HaveOccurred())

		err = s.Acquire(ctx)
		Expect(err).To(Equal(context.DeadlineExceeded))

		s.Release()
	})

	It("allows acquisition after a release", func() {
		s := New(1)

		err := s.Acquire(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		s.Release()

		err = s.Acquire(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		s.Release()
	})

	It("imposes no limit when it is the zero-value", func() {
		var s Semaphore
		Expect(s.Limit()).To(Equal(0))

		for i := 0; i < 10; i++ {
			err := s.Acquire(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		}
	})

	It("imposes no limit when constructed with a non-positive limit", func() {
		s := New(0)
		Expect(s.Limit()).To(Equal(0))
	})
})
