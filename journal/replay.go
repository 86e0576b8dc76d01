package journal

import (
	"context"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/record"
)

// replayPageSize is the maximum number of events loaded by each scan during a
// replay.
const replayPageSize = 256

// Replay calls fn for each of an entity's events with sequence numbers in the
// range [from, to], in order, stopping after max events.
//
// to must not exceed the value returned by ReadHighestSequenceNr(). If the
// replica that serves the replay has not yet received all of the events in
// the range, Replay() blocks until they arrive or ctx is canceled.
func (j *Journal) Replay(
	ctx context.Context,
	entityID string,
	from, to, max int64,
	fn func(envelope.Envelope) error,
) (err error) {
	if max <= 0 || from > to {
		return nil
	}

	if from < 1 {
		from = 1
	}

	ctx, cancel := j.withReadTimeout(ctx)
	defer cancel()

	r := &replayer{
		journal:  j,
		entityID: entityID,
		next:     from,
		to:       to,
		max:      max,
		fn:       fn,
	}

	defer func() {
		mlog.LogReplay(j.Logger, entityID, from, to, int(r.count), err)
	}()

	return r.run(ctx)
}

// replayer is the state of a single call to Replay().
type replayer struct {
	journal  *Journal
	entityID string
	next     int64
	to       int64
	max      int64
	count    int64
	fn       func(envelope.Envelope) error
}

func (r *replayer) run(ctx context.Context) error {
	keys := r.journal.keys()
	store := r.journal.Store

	// The watch is opened before the frontier is loaded so that any events
	// committed after the frontier is read also signal the watch.
	w := store.WatchPrefix(keys.EventPrefix(r.entityID))
	defer w.Close()

	for {
		md, ok, err := r.journal.loadMetadata(ctx, store, r.entityID)
		if err != nil {
			return err
		}

		done, err := r.scan(ctx)
		if done || err != nil {
			return err
		}

		if !ok || md.MaxSequenceNr >= r.to {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Done():
			return document.ErrClosed
		case <-w.Ready():
		}
	}
}

// scan delivers events from the local replica until it is exhausted.
//
// It returns true if the replay is complete.
func (r *replayer) scan(ctx context.Context) (bool, error) {
	keys := r.journal.keys()
	prefix := keys.EventPrefix(r.entityID)

	for {
		docs, err := r.journal.Store.Scan(
			ctx,
			prefix,
			keys.EventID(r.entityID, r.next-1),
			replayPageSize,
		)
		if err != nil {
			return false, err
		}

		for _, doc := range docs {
			done, err := r.deliver(doc)
			if done || err != nil {
				return done, err
			}
		}

		if len(docs) < replayPageSize {
			return false, nil
		}
	}
}

// deliver passes a single event to the replay function.
//
// It returns true if the replay is complete.
func (r *replayer) deliver(doc document.Document) (bool, error) {
	rec, err := record.Unmarshal[record.Event](doc)
	if err != nil {
		return false, err
	}

	if rec.SequenceNr > r.to {
		return true, nil
	}

	env, err := envelope.Unmarshal(r.journal.Marshaler, rec)
	if err != nil {
		return false, err
	}

	if err := r.fn(env); err != nil {
		return false, err
	}

	r.next = rec.SequenceNr + 1
	r.count++

	return r.count >= r.max || rec.SequenceNr == r.to, nil
}
