package fixtures

import (
	"time"

	"github.com/dogmatiq/docjournal/envelope"
)

// WriterID is the writer ID used by envelopes created by NewEnvelope().
const WriterID = "<writer>"

// NewEnvelope returns a new envelope containing the given event.
func NewEnvelope(
	entityID string,
	seq int64,
	ev interface{},
	tags ...string,
) envelope.Envelope {
	return envelope.Envelope{
		EntityID:   entityID,
		SequenceNr: seq,
		Event:      ev,
		Tags:       tags,
		WriterID:   WriterID,
		Timestamp:  time.Now(),
	}
}

// NewEnvelopes returns envelopes for n UserRenamed events with sequence
// numbers starting at from.
func NewEnvelopes(entityID string, from int64, n int, tags ...string) []envelope.Envelope {
	envs := make([]envelope.Envelope, n)

	for i := range envs {
		envs[i] = NewEnvelope(
			entityID,
			from+int64(i),
			UserRenamed{Name: entityID},
			tags...,
		)
	}

	return envs
}
