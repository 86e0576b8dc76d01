package query

import (
	"context"
	"errors"
	"sync"
)

// ErrStreamClosed is returned by Stream.Next() after the stream is closed.
var ErrStreamClosed = errors.New("stream is closed")

// Stream is an ordered stream of query results.
//
// Results are buffered until they are consumed by calls to Next(). The query
// is paused while the buffer is full.
type Stream[T any] struct {
	m        sync.Mutex
	items    []T
	max      int
	finished bool
	closed   bool
	err      error

	ready  chan struct{} // signals the consumer that items or completion are available
	space  chan struct{} // signals the producer that the buffer has room
	cancel context.CancelFunc
	done   chan struct{} // closed when the producer has returned
}

// newStream returns a new stream that buffers up to max items.
func newStream[T any](max int, cancel context.CancelFunc) *Stream[T] {
	return &Stream[T]{
		max:    max,
		ready:  make(chan struct{}, 1),
		space:  make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Next returns the next result from the stream.
//
// ok is false when the query is complete. If the query failed, err is the
// cause of the failure.
func (s *Stream[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	for {
		s.m.Lock()

		if s.closed {
			s.m.Unlock()
			return item, false, ErrStreamClosed
		}

		if len(s.items) > 0 {
			var zero T
			item = s.items[0]
			s.items[0] = zero
			s.items = s.items[1:]
			s.m.Unlock()

			notify(s.space)

			return item, true, nil
		}

		if s.finished {
			err := s.err
			s.m.Unlock()
			return item, false, err
		}

		s.m.Unlock()

		select {
		case <-ctx.Done():
			return item, false, ctx.Err()
		case <-s.ready:
		}
	}
}

// Close stops the query and discards any buffered results.
func (s *Stream[T]) Close() error {
	s.m.Lock()
	s.closed = true
	s.items = nil
	s.m.Unlock()

	s.cancel()
	<-s.done

	return nil
}

// send adds an item to the buffer, blocking while the buffer is full.
func (s *Stream[T]) send(ctx context.Context, item T) error {
	for {
		s.m.Lock()

		if s.closed {
			s.m.Unlock()
			return ErrStreamClosed
		}

		if len(s.items) < s.max {
			s.items = append(s.items, item)
			s.m.Unlock()

			notify(s.ready)

			return nil
		}

		s.m.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.space:
		}
	}
}

// finish marks the stream as complete. err is the cause of failure, if any.
func (s *Stream[T]) finish(err error) {
	s.m.Lock()
	s.finished = true
	s.err = err
	s.m.Unlock()

	notify(s.ready)
	close(s.done)
}

// notify sends a coalesced signal on a channel with a buffer of one.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
