package document

import (
	"sync"
)

// Notifier dispatches change notifications to watches.
//
// It is used by store implementations; the zero value is ready to use.
type Notifier struct {
	m       sync.Mutex
	watches map[*Watch]struct{}
	closed  bool
	done    chan struct{}
}

// Watch is a subscription to changes to a set of documents.
//
// Signals are coalesced; any number of changes that occur while a previous
// signal is pending produce a single signal.
type Watch struct {
	notifier *Notifier
	match    func(id string) bool
	ready    chan struct{}
	once     sync.Once
}

// Watch returns a new watch that is signaled when a document with an ID for
// which match returns true changes.
func (n *Notifier) Watch(match func(id string) bool) *Watch {
	w := &Watch{
		notifier: n,
		match:    match,
		ready:    make(chan struct{}, 1),
	}

	n.m.Lock()
	defer n.m.Unlock()

	n.init()

	if !n.closed {
		n.watches[w] = struct{}{}
	}

	return w
}

// Notify signals all watches that match any of the given document IDs.
func (n *Notifier) Notify(ids ...string) {
	n.m.Lock()
	defer n.m.Unlock()

	for w := range n.watches {
		for _, id := range ids {
			if w.match(id) {
				w.signal()
				break
			}
		}
	}
}

// Close stops the notifier. The Done() channel of every watch is closed.
func (n *Notifier) Close() {
	n.m.Lock()
	defer n.m.Unlock()

	n.init()

	if !n.closed {
		n.closed = true
		n.watches = nil
		close(n.done)
	}
}

func (n *Notifier) init() {
	if n.done == nil {
		n.done = make(chan struct{})
		n.watches = map[*Watch]struct{}{}
	}
}

// Ready returns a channel that receives a value when a change occurs.
func (w *Watch) Ready() <-chan struct{} {
	return w.ready
}

// Done returns a channel that is closed when the underlying store is closed.
func (w *Watch) Done() <-chan struct{} {
	w.notifier.m.Lock()
	defer w.notifier.m.Unlock()

	return w.notifier.done
}

// Reset discards any pending signal.
func (w *Watch) Reset() {
	select {
	case <-w.ready:
	default:
	}
}

// Close stops the watch. It is safe to call Close() more than once.
func (w *Watch) Close() {
	w.once.Do(func() {
		w.notifier.m.Lock()
		defer w.notifier.m.Unlock()

		delete(w.notifier.watches, w)
	})
}

func (w *Watch) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}
