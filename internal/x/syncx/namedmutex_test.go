package syncx_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/docjournal/internal/x/syncx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type RWMutexNamespace", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		ns     *RWMutexNamespace
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 500*time.Millisecond)
		ns = &RWMutexNamespace{}
	})

	AfterEach(func() {
		cancel()
	})

	It("allows concurrent shared locks on the same name", func() {
		u1, err := ns.RLock(ctx, "<name>")
		Expect(err).ShouldNot(HaveOccurred())
		defer u1()

		u2, err := ns.RLock(ctx, "<name>")
		Expect(err).ShouldNot(HaveOccurred())
		defer u2()
	})

	It("does not block locks on other names", func() {
		u1, err := ns.Lock(ctx, "<name-1>")
		Expect(err).ShouldNot(HaveOccurred())
		defer u1()

		u2, err := ns.Lock(ctx, "<name-2>")
		Expect(err).ShouldNot(HaveOccurred())
		defer u2()
	})

	It("returns an unlock function that is safe to call more than once", func() {
		u, err := ns.Lock(ctx, "<name>")
		Expect(err).ShouldNot(HaveOccurred())

		u()
		u()

		u, err = ns.Lock(ctx, "<name>")
		Expect(err).ShouldNot(HaveOccurred())
		u()
	})

	It("removes mutexes that are no longer in use", func() {
		u1, err := ns.RLock(ctx, "<name-1>")
		Expect(err).ShouldNot(HaveOccurred())

		u2, err := ns.Lock(ctx, "<name-2>")
		Expect(err).ShouldNot(HaveOccurred())

		Expect(ns.Len()).To(Equal(2))

		u1()
		Expect(ns.Len()).To(Equal(1))

		u2()
		Expect(ns.Len()).To(Equal(0))
	})

	When("an exclusive lock is held", func() {
		var unlock UnlockFunc

		BeforeEach(func() {
			var err error
			unlock, err = ns.Lock(ctx, "<name>")
			Expect(err).ShouldNot(HaveOccurred())
		})

		AfterEach(func() {
			unlock()
		})

		It("blocks until the mutex is unlocked", func() {
			go func() {
				time.Sleep(20 * time.Millisecond)
				unlock()
			}()

			u, err := ns.RLock(ctx, "<name>")
			Expect(err).ShouldNot(HaveOccurred())
			u()
		})

		It("returns an error if the deadline is exceeded", func() {
			ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			u, err := ns.Lock(ctx, "<name>")
			if u != nil {
				u()
			}
			Expect(err).To(Equal(context.DeadlineExceeded))
		})

		It("keeps the mutex after a waiter gives up", func() {
			ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			_, err := ns.Lock(ctx, "<name>")
			Expect(err).To(Equal(context.DeadlineExceeded))
			Expect(ns.Len()).To(Equal(1))
		})
	})
})
