package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore limits the number of operations that can be performed
// concurrently.
//
// The zero-value imposes no limit.
type Semaphore struct {
	n   int
	sem *semaphore.Weighted
}

// New returns a semaphore that allows n operations to be performed
// concurrently.
//
// If n is zero or less, there is no limit.
func New(n int) Semaphore {
	if n <= 0 {
		return Semaphore{}
	}

	return Semaphore{
		n,
		semaphore.NewWeighted(int64(n)),
	}
}

// Limit returns the number of operations that can be performed concurrently.
//
// It returns 0 if there is no limit.
func (s *Semaphore) Limit() int {
	if s.sem == nil {
		return 0
	}

	return s.n
}

// Acquire blocks until it is ok for the caller to begin an operation, or until
// ctx is canceled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.sem == nil {
		return ctx.Err()
	}

	return s.sem.Acquire(ctx, 1)
}

// Release signals that an operation has completed.
func (s *Semaphore) Release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}
