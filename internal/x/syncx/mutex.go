package syncx

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"
)

// exclusive is the semaphore weight acquired by an exclusive lock. Each
// shared lock acquires a weight of one.
const exclusive = math.MaxInt32

// RWMutex is a context-aware read/write mutex.
//
// Waiters are served in the order they arrive, so a pending call to Lock()
// prevents later calls to RLock() from succeeding until it has been served.
//
// The zero-value is an unlocked mutex.
type RWMutex struct {
	init sync.Once
	sem  *semaphore.Weighted
}

// Lock acquires an exclusive lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) Lock(ctx context.Context) error {
	return m.acquire(ctx, exclusive)
}

// Unlock releases the mutex.
//
// It panics if the mutex is not currently locked with Lock().
func (m *RWMutex) Unlock() {
	m.release(exclusive)
}

// RLock acquires a shared lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) RLock(ctx context.Context) error {
	return m.acquire(ctx, 1)
}

// RUnlock releases the mutex.
//
// It panics if the mutex is not currently locked with RLock().
func (m *RWMutex) RUnlock() {
	m.release(1)
}

func (m *RWMutex) acquire(ctx context.Context, n int64) error {
	// The semaphore grants an uncontended lock without consulting the context,
	// so bail early if it is already done.
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.semaphore().Acquire(ctx, n)
}

func (m *RWMutex) release(n int64) {
	m.semaphore().Release(n)
}

func (m *RWMutex) semaphore() *semaphore.Weighted {
	m.init.Do(func() {
		m.sem = semaphore.NewWeighted(exclusive)
	})

	return m.sem
}
