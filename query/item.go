package query

import (
	"time"

	"github.com/dogmatiq/docjournal/offset"
)

// EventEnvelope is an event delivered by a query.
type EventEnvelope struct {
	// Offset is the position of the query immediately after this event. It can
	// be used to resume the query without observing this event again.
	Offset offset.Offset

	EntityID   string
	SequenceNr int64
	Timestamp  time.Time
	Tags       []string
	Event      interface{}
}

// EntityID is an entity identifier delivered by an entity ID query.
type EntityID struct {
	// Offset is the position of the query immediately after this entity.
	Offset offset.Offset

	EntityID string
}
