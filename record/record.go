package record

import (
	"fmt"
	"time"

	"github.com/dogmatiq/docjournal/document"
	"github.com/fxamacker/cbor/v2"
)

// Event is the stored representation of a single event.
//
// Event records are immutable once written.
type Event struct {
	ID           string    `cbor:"-"`
	EntityID     string    `cbor:"entity_id"`
	SequenceNr   int64     `cbor:"sequence_nr"`
	Payload      []byte    `cbor:"payload"`
	SerializerID string    `cbor:"serializer_id"`
	Manifest     string    `cbor:"manifest"`
	Tags         []string  `cbor:"tags,omitempty"`
	Timestamp    time.Time `cbor:"timestamp"`
	WriterID     string    `cbor:"writer_id"`
	IsDeleted    bool      `cbor:"is_deleted,omitempty"`
}

// Metadata is the per-entity record holding the highest committed sequence
// number. It is the anchor for optimistic concurrency control when appending
// events.
type Metadata struct {
	ID            string    `cbor:"-"`
	EntityID      string    `cbor:"entity_id"`
	MaxSequenceNr int64     `cbor:"max_sequence_nr"`
	Timestamp     time.Time `cbor:"timestamp"`
}

// UniqueEntity is a marker created once per entity. It outlives the entity's
// events so that entity IDs remain enumerable.
type UniqueEntity struct {
	ID        string    `cbor:"-"`
	EntityID  string    `cbor:"entity_id"`
	CreatedAt time.Time `cbor:"created_at"`
}

// Snapshot is the stored representation of an entity's state at a specific
// sequence number.
type Snapshot struct {
	ID           string    `cbor:"-"`
	EntityID     string    `cbor:"entity_id"`
	SequenceNr   int64     `cbor:"sequence_nr"`
	Timestamp    time.Time `cbor:"timestamp"`
	Payload      []byte    `cbor:"payload"`
	SerializerID string    `cbor:"serializer_id"`
	Manifest     string    `cbor:"manifest"`
}

// Record is a constraint satisfied by all record types.
type Record interface {
	Event | Metadata | UniqueEntity | Snapshot
}

var encMode = func() cbor.EncMode {
	m, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	return m
}()

// Marshal encodes a record as a document body.
func Marshal[R Record](r R) ([]byte, error) {
	return encMode.Marshal(r)
}

// Unmarshal decodes a record from a document.
//
// The record's ID field is populated from the document ID.
func Unmarshal[R Record](doc document.Document) (R, error) {
	var r R

	if err := cbor.Unmarshal(doc.Body, &r); err != nil {
		return r, fmt.Errorf("unable to decode record %q: %w", doc.ID, err)
	}

	switch r := any(&r).(type) {
	case *Event:
		r.ID = doc.ID
	case *Metadata:
		r.ID = doc.ID
	case *UniqueEntity:
		r.ID = doc.ID
	case *Snapshot:
		r.ID = doc.ID
	}

	return r, nil
}
