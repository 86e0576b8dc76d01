package syncx

import (
	"context"
	"sync"
)

// UnlockFunc is a function used to unlock a previously locked mutex.
type UnlockFunc func()

// RWMutexNamespace is a "namespace" of named, context-aware read/write
// mutexes.
//
// A mutex exists only while it is locked or has pending lockers.
type RWMutexNamespace struct {
	m       sync.Mutex
	mutexes map[string]*nmutex
}

// nmutex is a named mutex.
type nmutex struct {
	RWMutex
	refs int // pending or successful lock calls, guarded by the namespace
}

// Lock acquires an exclusive lock on the mutex with the given name.
//
// It returns an unlock function which must be called to unlock the mutex. The
// unlock function may be called more than once.
func (ns *RWMutexNamespace) Lock(ctx context.Context, n string) (UnlockFunc, error) {
	return ns.acquire(ctx, n, (*RWMutex).Lock, (*RWMutex).Unlock)
}

// RLock acquires a shared lock on the mutex with the given name.
//
// It returns an unlock function which must be called to unlock the mutex. The
// unlock function may be called more than once.
func (ns *RWMutexNamespace) RLock(ctx context.Context, n string) (UnlockFunc, error) {
	return ns.acquire(ctx, n, (*RWMutex).RLock, (*RWMutex).RUnlock)
}

// Len returns the number of mutexes in the namespace.
func (ns *RWMutexNamespace) Len() int {
	ns.m.Lock()
	defer ns.m.Unlock()

	return len(ns.mutexes)
}

func (ns *RWMutexNamespace) acquire(
	ctx context.Context,
	n string,
	lock func(*RWMutex, context.Context) error,
	unlock func(*RWMutex),
) (UnlockFunc, error) {
	m := ns.get(n)

	if err := lock(&m.RWMutex, ctx); err != nil {
		ns.release(n, m)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlock(&m.RWMutex)
			ns.release(n, m)
		})
	}, nil
}

// get returns the mutex with the given name, creating it if necessary.
func (ns *RWMutexNamespace) get(n string) *nmutex {
	ns.m.Lock()
	defer ns.m.Unlock()

	m, ok := ns.mutexes[n]
	if !ok {
		if ns.mutexes == nil {
			ns.mutexes = map[string]*nmutex{}
		}

		m = &nmutex{}
		ns.mutexes[n] = m
	}

	m.refs++

	return m
}

// release removes m from the namespace if there are no other lockers.
func (ns *RWMutexNamespace) release(n string, m *nmutex) {
	ns.m.Lock()
	defer ns.m.Unlock()

	m.refs--

	if m.refs == 0 {
		delete(ns.mutexes, n)
	}
}
