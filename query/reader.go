package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/offset"
	"github.com/dogmatiq/docjournal/record"
	"github.com/dogmatiq/marshalkit"
)

var (
	// DefaultRefreshInterval is the default interval at which live all-events
	// queries poll for new events.
	DefaultRefreshInterval = 3 * time.Second

	// DefaultMaxBufferSize is the default number of results buffered by a
	// stream before the query is paused.
	DefaultMaxBufferSize = 64 * 1024
)

// pageSize is the number of documents requested from the store at once.
const pageSize = 1024

// Reader executes queries against the events and entities in a journal.
//
// "Current" queries return the results that exist when the query is started
// and then complete. "Live" queries continue to deliver new results as they
// are written, until the stream is closed or the context is canceled.
type Reader struct {
	// Store is the document store that contains the journal.
	Store document.Store

	// Marshaler is used to unmarshal events.
	Marshaler marshalkit.ValueMarshaler

	// Keys is the key scheme used to identify records. If its namespace is
	// empty, record.DefaultNamespace is used.
	Keys record.Keys

	// RefreshInterval is the interval at which live all-events queries poll
	// for new events. If it is zero, DefaultRefreshInterval is used.
	RefreshInterval time.Duration

	// MaxBufferSize is the number of results buffered by each stream. If it is
	// zero, DefaultMaxBufferSize is used.
	MaxBufferSize int

	// Logger is the target for log messages about query progress.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// LiveEntityIDs returns a stream of the IDs of all entities that have events,
// beginning after offset o. The stream never completes on its own.
func (r *Reader) LiveEntityIDs(ctx context.Context, o offset.Offset) (*Stream[EntityID], error) {
	return r.entityIDs(ctx, o, true)
}

// CurrentEntityIDs returns a stream of the IDs of all entities that have
// events, beginning after offset o. The stream completes once the existing
// entities have been delivered.
func (r *Reader) CurrentEntityIDs(ctx context.Context, o offset.Offset) (*Stream[EntityID], error) {
	return r.entityIDs(ctx, o, false)
}

// LiveEventsByEntity returns a stream of an entity's events with sequence
// numbers in the range [from, to]. The stream completes once the event at
// sequence number "to" has been delivered.
func (r *Reader) LiveEventsByEntity(
	ctx context.Context,
	entityID string,
	from, to int64,
) (*Stream[EventEnvelope], error) {
	return r.eventsByEntity(ctx, entityID, from, to, true)
}

// CurrentEventsByEntity returns a stream of an entity's events with sequence
// numbers in the range [from, to].
//
// Events appended after the query is started are not delivered.
func (r *Reader) CurrentEventsByEntity(
	ctx context.Context,
	entityID string,
	from, to int64,
) (*Stream[EventEnvelope], error) {
	return r.eventsByEntity(ctx, entityID, from, to, false)
}

// LiveEventsByTag returns a stream of the events with the given tag, beginning
// after offset o. The stream never completes on its own.
func (r *Reader) LiveEventsByTag(
	ctx context.Context,
	tag string,
	o offset.Offset,
) (*Stream[EventEnvelope], error) {
	return r.events(ctx, tag, o, true)
}

// CurrentEventsByTag returns a stream of the events with the given tag,
// beginning after offset o.
func (r *Reader) CurrentEventsByTag(
	ctx context.Context,
	tag string,
	o offset.Offset,
) (*Stream[EventEnvelope], error) {
	return r.events(ctx, tag, o, false)
}

// LiveAllEvents returns a stream of all events, beginning after offset o. The
// stream never completes on its own.
//
// Unlike the other live queries, it polls for new events at RefreshInterval.
func (r *Reader) LiveAllEvents(ctx context.Context, o offset.Offset) (*Stream[EventEnvelope], error) {
	return r.events(ctx, "", o, true)
}

// CurrentAllEvents returns a stream of all events, beginning after offset o.
func (r *Reader) CurrentAllEvents(ctx context.Context, o offset.Offset) (*Stream[EventEnvelope], error) {
	return r.events(ctx, "", o, false)
}

func (r *Reader) entityIDs(
	ctx context.Context,
	o offset.Offset,
	live bool,
) (*Stream[EntityID], error) {
	if err := validateVectorOffset(o); err != nil {
		return nil, err
	}

	q := Query[EntityID]{
		Name:   "entity IDs",
		Offset: o,
		Pass: func(ctx context.Context, o offset.Offset, emit func(EntityID) error) (offset.Offset, bool, error) {
			return r.indexPass(
				ctx,
				UniqueEntitiesIndex,
				"",
				o,
				func(doc document.Document, o offset.Offset) error {
					rec, err := record.Unmarshal[record.UniqueEntity](doc)
					if err != nil {
						return err
					}

					return emit(EntityID{
						Offset:   o,
						EntityID: rec.EntityID,
					})
				},
			)
		},
	}

	if live {
		q.Name = "live " + q.Name
		q.Signal = r.watchIndex(UniqueEntitiesIndex)
	}

	return Run(ctx, q, r.MaxBufferSize, r.Logger), nil
}

func (r *Reader) events(
	ctx context.Context,
	tag string,
	o offset.Offset,
	live bool,
) (*Stream[EventEnvelope], error) {
	if err := validateVectorOffset(o); err != nil {
		return nil, err
	}

	index := EventsByTagIndex(r.keys())

	q := Query[EventEnvelope]{
		Name:   "all events",
		Offset: o,
		Pass: func(ctx context.Context, o offset.Offset, emit func(EventEnvelope) error) (offset.Offset, bool, error) {
			return r.indexPass(
				ctx,
				index,
				tag,
				o,
				func(doc document.Document, o offset.Offset) error {
					return r.emitEvent(doc, o, emit)
				},
			)
		},
	}

	if tag != "" {
		q.Name = fmt.Sprintf("events tagged %q", tag)
	}

	if live {
		q.Name = "live " + q.Name

		if tag == "" {
			q.Signal = func() (Signal, error) {
				d := r.RefreshInterval
				if d <= 0 {
					d = DefaultRefreshInterval
				}
				return newTickerSignal(d), nil
			}
		} else {
			q.Signal = r.watchIndex(index)
		}
	}

	return Run(ctx, q, r.MaxBufferSize, r.Logger), nil
}

func (r *Reader) eventsByEntity(
	ctx context.Context,
	entityID string,
	from, to int64,
	live bool,
) (*Stream[EventEnvelope], error) {
	if from < 1 {
		from = 1
	}

	keys := r.keys()
	prefix := keys.EventPrefix(entityID)

	q := Query[EventEnvelope]{
		Name:   fmt.Sprintf("events of %q", entityID),
		Offset: offset.Sequence(from - 1),
	}

	limit := to
	q.Pass = func(ctx context.Context, o offset.Offset, emit func(EventEnvelope) error) (offset.Offset, bool, error) {
		cur := o.(offset.Sequence)

		for int64(cur) < limit {
			docs, err := r.Store.Scan(
				ctx,
				prefix,
				keys.EventID(entityID, int64(cur)),
				pageSize,
			)
			if err != nil {
				return cur, false, err
			}

			for _, doc := range docs {
				seq, err := record.ParseSequence(doc.ID)
				if err != nil {
					return cur, false, err
				}

				if seq > limit {
					return cur, true, nil
				}

				if err := r.emitEvent(doc, offset.Sequence(seq), emit); err != nil {
					return cur, false, err
				}

				cur = offset.Sequence(seq)
			}

			if len(docs) < pageSize {
				return cur, false, nil
			}
		}

		return cur, true, nil
	}

	if live {
		q.Name = "live " + q.Name
		q.Signal = func() (Signal, error) {
			return watchSignal{r.Store.WatchPrefix(prefix)}, nil
		}

		return Run(ctx, q, r.MaxBufferSize, r.Logger), nil
	}

	// A current query never reads beyond the entity's frontier at the time
	// the query is started.
	doc, ok, err := r.Store.Load(ctx, keys.MetadataID(entityID))
	if err != nil {
		return nil, err
	}

	limit = 0
	if ok {
		md, err := record.Unmarshal[record.Metadata](doc)
		if err != nil {
			return nil, err
		}

		limit = md.MaxSequenceNr
		if to < limit {
			limit = to
		}
	}

	return Run(ctx, q, r.MaxBufferSize, r.Logger), nil
}

// indexPass delivers every document in an index that matches term and was
// revised after offset o, in etag order.
func (r *Reader) indexPass(
	ctx context.Context,
	index, term string,
	o offset.Offset,
	deliver func(document.Document, offset.Offset) error,
) (offset.Offset, bool, error) {
	cur, _ := o.(offset.Vector)

	for {
		q := document.Query{
			Index: index,
			Term:  term,
		}

		if err := offset.ApplyAsLowerBound(&q, cur); err != nil {
			return cur, false, err
		}

		docs, err := r.Store.Query(ctx, q, pageSize)
		if err != nil {
			return cur, false, err
		}

		for _, doc := range docs {
			cur = offset.Merge(cur, doc.ChangeVector)

			if err := deliver(doc, cur); err != nil {
				return cur, false, err
			}
		}

		if len(docs) < pageSize {
			return cur, false, nil
		}
	}
}

// emitEvent unmarshals an event record and emits it.
func (r *Reader) emitEvent(
	doc document.Document,
	o offset.Offset,
	emit func(EventEnvelope) error,
) error {
	rec, err := record.Unmarshal[record.Event](doc)
	if err != nil {
		return err
	}

	if rec.IsDeleted {
		return nil
	}

	env, err := envelope.Unmarshal(r.Marshaler, rec)
	if err != nil {
		return err
	}

	return emit(EventEnvelope{
		Offset:     o,
		EntityID:   env.EntityID,
		SequenceNr: env.SequenceNr,
		Timestamp:  env.Timestamp,
		Tags:       env.Tags,
		Event:      env.Event,
	})
}

func (r *Reader) watchIndex(name string) func() (Signal, error) {
	return func() (Signal, error) {
		w, err := r.Store.WatchIndex(name)
		if err != nil {
			return nil, err
		}

		return watchSignal{w}, nil
	}
}

func (r *Reader) keys() record.Keys {
	if r.Keys.Namespace == "" {
		return record.NewKeys("")
	}

	return r.Keys
}

// validateVectorOffset returns an error if o can not be used as the starting
// point of an index query.
func validateVectorOffset(o offset.Offset) error {
	return offset.ApplyAsLowerBound(&document.Query{}, o)
}
