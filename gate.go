package docjournal

import (
	"context"
	"errors"
	"sync"
)

// ErrStashFull is returned by an operation that is started before the engine
// is ready when too many other operations are already waiting.
var ErrStashFull = errors.New("too many operations are waiting for the engine to become ready")

// gate blocks operations until the engine's storage has been initialized.
type gate struct {
	limit int

	once    sync.Once
	m       sync.Mutex
	ready   chan struct{}
	err     error
	waiting int
}

func newGate(limit int) *gate {
	return &gate{
		limit: limit,
		ready: make(chan struct{}),
	}
}

// Wait blocks until the gate is opened or ctx is canceled.
//
// It returns the error the gate was opened with, if any.
func (g *gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return g.err
	default:
	}

	g.m.Lock()
	if g.waiting >= g.limit {
		g.m.Unlock()
		return ErrStashFull
	}
	g.waiting++
	g.m.Unlock()

	defer func() {
		g.m.Lock()
		g.waiting--
		g.m.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.ready:
		return g.err
	}
}

// Open releases every waiting operation. If err is non-nil, every current and
// future call to Wait() fails with err.
//
// Only the first call has any effect.
func (g *gate) Open(err error) {
	g.once.Do(func() {
		g.err = err
		close(g.ready)
	})
}
