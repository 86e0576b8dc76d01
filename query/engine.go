package query

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/offset"
)

// Pass executes a single pass of a continuous query, beginning at offset o.
//
// It calls emit for each result, in order. It returns the offset after the
// last emitted result, and true if the query is complete and no further
// passes are necessary.
type Pass[T any] func(
	ctx context.Context,
	o offset.Offset,
	emit func(T) error,
) (offset.Offset, bool, error)

// Signal notifies a continuous query that another pass may find new results.
type Signal interface {
	// Wait blocks until the signal fires or ctx is canceled.
	Wait(ctx context.Context) error

	// Reset discards any pending notification.
	Reset()

	// Close releases the resources used by the signal.
	Close()
}

// Query describes a continuous query.
type Query[T any] struct {
	// Name is a human-readable description of the query, used for logging.
	Name string

	// Offset is the position from which the first pass begins.
	Offset offset.Offset

	// Pass executes a single pass of the query.
	Pass Pass[T]

	// Signal opens the signal used to wait for new results. If it is nil, the
	// query completes after its first pass.
	Signal func() (Signal, error)
}

// Run starts a continuous query and returns a stream of its results.
//
// The query runs until it completes, an error occurs, ctx is canceled, or the
// stream is closed.
func Run[T any](
	ctx context.Context,
	q Query[T],
	bufferSize int,
	logger logging.Logger,
) *Stream[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultMaxBufferSize
	}

	ctx, cancel := context.WithCancel(ctx)
	s := newStream[T](bufferSize, cancel)

	go func() {
		defer cancel()
		s.finish(run(ctx, q, s, logger))
	}()

	return s
}

func run[T any](
	ctx context.Context,
	q Query[T],
	s *Stream[T],
	logger logging.Logger,
) error {
	var sig Signal
	if q.Signal != nil {
		var err error
		sig, err = q.Signal()
		if err != nil {
			return err
		}
		defer sig.Close()
	}

	cur := q.Offset
	if cur == nil {
		cur = offset.None{}
	}

	for {
		if sig != nil {
			sig.Reset()
		}

		n := 0
		next, done, err := q.Pass(
			ctx,
			cur,
			func(item T) error {
				n++
				return s.send(ctx, item)
			},
		)
		if err != nil {
			return err
		}

		cur = next
		done = done || sig == nil

		mlog.LogQueryPass(logger, q.Name, cur, n, done)

		if done {
			return nil
		}

		if err := sig.Wait(ctx); err != nil {
			return err
		}
	}
}

// watchSignal is a Signal that fires when documents change.
type watchSignal struct {
	w *document.Watch
}

func (s watchSignal) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.w.Done():
		return document.ErrClosed
	case <-s.w.Ready():
		return nil
	}
}

func (s watchSignal) Reset() { s.w.Reset() }
func (s watchSignal) Close() { s.w.Close() }

// tickerSignal is a Signal that fires at a fixed interval.
type tickerSignal struct {
	t *time.Ticker
}

func newTickerSignal(d time.Duration) tickerSignal {
	return tickerSignal{time.NewTicker(d)}
}

func (s tickerSignal) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.t.C:
		return nil
	}
}

func (s tickerSignal) Reset() {
	select {
	case <-s.t.C:
	default:
	}
}

func (s tickerSignal) Close() { s.t.Stop() }
