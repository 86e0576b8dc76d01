package query_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/docjournal/offset"
	. "github.com/dogmatiq/docjournal/query"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// signalStub is a Signal that fires when a value is sent on its channel.
type signalStub struct {
	ch     chan struct{}
	closed int32
}

func (s *signalStub) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ch:
		return nil
	}
}

func (s *signalStub) Reset() {}

func (s *signalStub) Close() {
	atomic.StoreInt32(&s.closed, 1)
}

var _ = Describe("func Run()", func() {
	var (
		ctx    context.Context
		logger *logging.BufferedLogger
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		DeferCleanup(cancel)

		logger = &logging.BufferedLogger{CaptureDebug: true}
	})

	// counter returns a pass that emits the next n integers on each pass.
	counter := func(n int) Pass[int] {
		return func(
			ctx context.Context,
			o offset.Offset,
			emit func(int) error,
		) (offset.Offset, bool, error) {
			cur, _ := o.(offset.Sequence)

			for i := 0; i < n; i++ {
				cur++
				if err := emit(int(cur)); err != nil {
					return cur, false, err
				}
			}

			return cur, false, nil
		}
	}

	It("completes after a single pass if there is no signal", func() {
		s := Run(ctx, Query[int]{Pass: counter(3)}, 0, logger)
		defer s.Close()

		Expect(drain(ctx, s)).To(Equal([]int{1, 2, 3}))
	})

	It("starts the first pass at the query's offset", func() {
		s := Run(
			ctx,
			Query[int]{
				Offset: offset.Sequence(10),
				Pass:   counter(2),
			},
			0,
			logger,
		)
		defer s.Close()

		Expect(drain(ctx, s)).To(Equal([]int{11, 12}))
	})

	It("runs another pass each time the signal fires", func() {
		sig := &signalStub{ch: make(chan struct{})}

		s := Run(
			ctx,
			Query[int]{
				Pass:   counter(2),
				Signal: func() (Signal, error) { return sig, nil },
			},
			0,
			logger,
		)
		defer s.Close()

		Expect(next(ctx, s)).To(Equal(1))
		Expect(next(ctx, s)).To(Equal(2))

		sig.ch <- struct{}{}

		Expect(next(ctx, s)).To(Equal(3))
		Expect(next(ctx, s)).To(Equal(4))
	})

	It("completes when the pass reports completion", func() {
		passes := 0
		sig := &signalStub{ch: make(chan struct{}, 10)}
		sig.ch <- struct{}{}

		s := Run(
			ctx,
			Query[int]{
				Pass: func(
					ctx context.Context,
					o offset.Offset,
					emit func(int) error,
				) (offset.Offset, bool, error) {
					passes++
					return o, passes == 2, emit(passes)
				},
				Signal: func() (Signal, error) { return sig, nil },
			},
			0,
			logger,
		)
		defer s.Close()

		Expect(drain(ctx, s)).To(Equal([]int{1, 2}))
		Eventually(func() int32 {
			return atomic.LoadInt32(&sig.closed)
		}).Should(BeNumerically("==", 1))
	})

	It("finishes the stream with the error returned by the pass", func() {
		s := Run(
			ctx,
			Query[int]{
				Pass: func(
					ctx context.Context,
					o offset.Offset,
					emit func(int) error,
				) (offset.Offset, bool, error) {
					if err := emit(1); err != nil {
						return o, false, err
					}
					return o, false, errors.New("<error>")
				},
			},
			0,
			logger,
		)
		defer s.Close()

		Expect(next(ctx, s)).To(Equal(1))

		_, ok, err := s.Next(ctx)
		Expect(ok).To(BeFalse())
		Expect(err).To(MatchError("<error>"))
	})

	It("finishes the stream with the error returned when opening the signal", func() {
		s := Run(
			ctx,
			Query[int]{
				Pass: counter(1),
				Signal: func() (Signal, error) {
					return nil, errors.New("<error>")
				},
			},
			0,
			logger,
		)
		defer s.Close()

		_, ok, err := s.Next(ctx)
		Expect(ok).To(BeFalse())
		Expect(err).To(MatchError("<error>"))
	})

	It("pauses the query while the buffer is full", func() {
		var sent int32

		s := Run(
			ctx,
			Query[int]{
				Pass: func(
					ctx context.Context,
					o offset.Offset,
					emit func(int) error,
				) (offset.Offset, bool, error) {
					for i := 1; i <= 3; i++ {
						if err := emit(i); err != nil {
							return o, false, err
						}
						atomic.AddInt32(&sent, 1)
					}
					return o, false, nil
				},
			},
			1,
			logger,
		)
		defer s.Close()

		Eventually(func() int32 {
			return atomic.LoadInt32(&sent)
		}).Should(BeNumerically("==", 1))

		Consistently(func() int32 {
			return atomic.LoadInt32(&sent)
		}, 20*time.Millisecond).Should(BeNumerically("==", 1))

		Expect(next(ctx, s)).To(Equal(1))

		Eventually(func() int32 {
			return atomic.LoadInt32(&sent)
		}).Should(BeNumerically("==", 2))
	})

	It("logs each pass", func() {
		s := Run(ctx, Query[int]{Name: "<query>", Pass: counter(2)}, 0, logger)
		defer s.Close()

		drain(ctx, s)

		Eventually(logger.Messages).Should(ContainElement(
			logging.BufferedLogMessage{
				Message: "⋲ 2  Σ    <query> ● delivered 2 item(s) ● query is complete",
				IsDebug: true,
			},
		))
	})
})

var _ = Describe("type Stream", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		DeferCleanup(cancel)
	})

	// blocked returns a query that emits one item and then blocks until it is
	// canceled.
	blocked := func() Query[int] {
		return Query[int]{
			Pass: func(
				ctx context.Context,
				o offset.Offset,
				emit func(int) error,
			) (offset.Offset, bool, error) {
				if err := emit(1); err != nil {
					return o, false, err
				}
				<-ctx.Done()
				return o, false, ctx.Err()
			},
		}
	}

	Describe("func Next()", func() {
		It("returns the context error if ctx is canceled while waiting", func() {
			s := Run(ctx, blocked(), 0, nil)
			defer s.Close()

			Expect(next(ctx, s)).To(Equal(1))

			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			_, ok, err := s.Next(waitCtx)
			Expect(ok).To(BeFalse())
			Expect(err).To(Equal(context.DeadlineExceeded))
		})
	})

	Describe("func Close()", func() {
		It("stops the query", func() {
			s := Run(ctx, blocked(), 0, nil)

			err := s.Close()
			Expect(err).ShouldNot(HaveOccurred())

			_, ok, err := s.Next(ctx)
			Expect(ok).To(BeFalse())
			Expect(err).To(Equal(ErrStreamClosed))
		})

		It("can be called more than once", func() {
			s := Run(ctx, blocked(), 0, nil)

			s.Close()
			err := s.Close()
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})

// next returns the next item from s, failing the test if there is none.
func next[T any](ctx context.Context, s *Stream[T]) T {
	item, ok, err := s.Next(ctx)
	ExpectWithOffset(1, err).ShouldNot(HaveOccurred())
	ExpectWithOffset(1, ok).To(BeTrue())
	return item
}

// drain reads items from s until it completes successfully.
func drain[T any](ctx context.Context, s *Stream[T]) []T {
	var items []T

	for {
		item, ok, err := s.Next(ctx)
		ExpectWithOffset(1, err).ShouldNot(HaveOccurred())

		if !ok {
			return items
		}

		items = append(items, item)
	}
}
