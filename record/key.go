package record

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultNamespace is the entity namespace used when none is specified.
const DefaultNamespace = "docjournal"

// UniqueEntitiesCollection is the collection containing unique-entity markers.
// It is shared by all namespaces.
const UniqueEntitiesCollection = "UniqueEntities"

// sequenceWidth is the number of decimal digits used to render a sequence
// number within a document ID. It is wide enough for any positive int64.
const sequenceWidth = 19

// Keys derives document IDs for a specific entity namespace.
//
// Event and snapshot IDs embed the sequence number as a fixed-width,
// zero-padded decimal string so that a prefix scan yields documents in
// ascending sequence order.
//
// Entity IDs must not contain '/'. The prefix shared by the records of entity
// "a" would otherwise also match the records of entity "a/b".
type Keys struct {
	Namespace string
}

// NewKeys returns the key scheme for the given namespace.
//
// If ns is empty, DefaultNamespace is used.
func NewKeys(ns string) Keys {
	if ns == "" {
		ns = DefaultNamespace
	}

	if strings.Contains(ns, "/") {
		panic("namespace must not contain '/'")
	}

	return Keys{ns}
}

// EventsCollection returns the ID prefix shared by all event records.
func (k Keys) EventsCollection() string {
	return k.Namespace + "Events/"
}

// MetadataCollection returns the ID prefix shared by all metadata records.
func (k Keys) MetadataCollection() string {
	return k.Namespace + "Metadata/"
}

// SnapshotsCollection returns the ID prefix shared by all snapshot records.
func (k Keys) SnapshotsCollection() string {
	return k.Namespace + "Snapshots/"
}

// EventPrefix returns the ID prefix shared by all of an entity's events.
func (k Keys) EventPrefix(entityID string) string {
	return k.EventsCollection() + entityID + "/"
}

// EventID returns the ID of the event record at the given sequence number.
//
// Sequence numbers less than 1 produce the ID that sorts before every event of
// the entity, for use as a scan starting point.
func (k Keys) EventID(entityID string, seq int64) string {
	return k.EventPrefix(entityID) + FormatSequence(seq)
}

// MetadataID returns the ID of an entity's metadata record.
func (k Keys) MetadataID(entityID string) string {
	return k.MetadataCollection() + entityID
}

// UniqueEntityID returns the ID of an entity's unique-entity marker.
func (k Keys) UniqueEntityID(entityID string) string {
	return UniqueEntitiesCollection + "/" + entityID
}

// SnapshotPrefix returns the ID prefix shared by all of an entity's
// snapshots.
func (k Keys) SnapshotPrefix(entityID string) string {
	return k.SnapshotsCollection() + entityID + "/"
}

// SnapshotID returns the ID of the snapshot record at the given sequence
// number.
func (k Keys) SnapshotID(entityID string, seq int64) string {
	return k.SnapshotPrefix(entityID) + FormatSequence(seq)
}

// FormatSequence renders a sequence number as a fixed-width decimal string.
// Values less than zero are rendered as zero.
func FormatSequence(seq int64) string {
	if seq < 0 {
		seq = 0
	}

	return fmt.Sprintf("%0*d", sequenceWidth, seq)
}

// ParseSequence parses the sequence number from the end of an event or
// snapshot ID.
func ParseSequence(id string) (int64, error) {
	i := strings.LastIndexByte(id, '/')
	s := id[i+1:]

	if len(s) != sequenceWidth {
		return 0, fmt.Errorf("malformed sequence number in %q", id)
	}

	return strconv.ParseInt(s, 10, 64)
}
