package envelope

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a container for an event and its meta-data.
type Envelope struct {
	// EntityID is the ID of the entity that the event belongs to.
	EntityID string

	// SequenceNr is the event's position within the entity's stream, starting
	// at 1.
	SequenceNr int64

	// Event is the in-memory representation of the event, as used by the
	// application.
	//
	// It may be a Tagged value, in which case its tags are added to Tags.
	Event interface{}

	// Tags is the set of tags under which the event is indexed.
	Tags []string

	// WriterID identifies the journal instance that wrote the event.
	WriterID string

	// Timestamp is the time at which the event was recorded. If it is zero
	// when the event is written the current time is used.
	Timestamp time.Time

	// IsDeleted is true if the event has been logically deleted.
	IsDeleted bool

	// Sender is the address of the party that produced the event, if any.
	//
	// It is only meaningful in-memory and is never persisted.
	Sender string
}

// Tagged wraps an event to attach tags to it.
type Tagged struct {
	Event interface{}
	Tags  []string
}

// NewWriterID returns a new unique writer ID.
func NewWriterID() string {
	return uuid.NewString()
}
