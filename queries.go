package docjournal

import (
	"context"

	"github.com/dogmatiq/docjournal/offset"
	"github.com/dogmatiq/docjournal/query"
)

// Queries is the engine's query interface.
//
// Each query waits for the engine to become ready before it is started.
type Queries struct {
	gate   *gate
	reader *query.Reader
}

// LiveEntityIDs returns a stream of the IDs of all entities, beginning after
// offset o. The stream never completes on its own.
func (q *Queries) LiveEntityIDs(ctx context.Context, o offset.Offset) (*query.Stream[query.EntityID], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.LiveEntityIDs(ctx, o)
}

// CurrentEntityIDs returns a stream of the IDs of all entities that exist
// when the query is started, beginning after offset o.
func (q *Queries) CurrentEntityIDs(ctx context.Context, o offset.Offset) (*query.Stream[query.EntityID], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.CurrentEntityIDs(ctx, o)
}

// LiveEventsByEntity returns a stream of an entity's events in the range
// [from, to], including events that are appended after the query is started.
func (q *Queries) LiveEventsByEntity(
	ctx context.Context,
	entityID string,
	from, to int64,
) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.LiveEventsByEntity(ctx, entityID, from, to)
}

// CurrentEventsByEntity returns a stream of an entity's events in the range
// [from, to] that exist when the query is started.
func (q *Queries) CurrentEventsByEntity(
	ctx context.Context,
	entityID string,
	from, to int64,
) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.CurrentEventsByEntity(ctx, entityID, from, to)
}

// LiveEventsByTag returns a stream of the events with the given tag,
// beginning after offset o. The stream never completes on its own.
func (q *Queries) LiveEventsByTag(
	ctx context.Context,
	tag string,
	o offset.Offset,
) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.LiveEventsByTag(ctx, tag, o)
}

// CurrentEventsByTag returns a stream of the events with the given tag that
// exist when the query is started, beginning after offset o.
func (q *Queries) CurrentEventsByTag(
	ctx context.Context,
	tag string,
	o offset.Offset,
) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.CurrentEventsByTag(ctx, tag, o)
}

// LiveAllEvents returns a stream of all events, beginning after offset o. The
// stream never completes on its own.
func (q *Queries) LiveAllEvents(ctx context.Context, o offset.Offset) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.LiveAllEvents(ctx, o)
}

// CurrentAllEvents returns a stream of all events that exist when the query is
// started, beginning after offset o.
func (q *Queries) CurrentAllEvents(ctx context.Context, o offset.Offset) (*query.Stream[query.EventEnvelope], error) {
	if err := q.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return q.reader.CurrentAllEvents(ctx, o)
}
