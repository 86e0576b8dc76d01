package envelope

import (
	"fmt"
	"sort"
	"time"

	"github.com/dogmatiq/docjournal/record"
	"github.com/dogmatiq/marshalkit"
)

// Marshal marshals an envelope to its stored representation.
//
// The record ID is not populated.
func Marshal(
	m marshalkit.ValueMarshaler,
	env Envelope,
) (record.Event, error) {
	ev, tags := unwrap(env.Event, env.Tags)

	p, err := m.Marshal(ev)
	if err != nil {
		return record.Event{}, fmt.Errorf(
			"unable to marshal event #%d of %q: %w",
			env.SequenceNr,
			env.EntityID,
			err,
		)
	}

	_, n, err := p.ParseMediaType()
	if err != nil {
		// CODE COVERAGE: This branch would require the marshaler to violate its
		// own requirements on the format of the media-type.
		panic(err)
	}

	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return record.Event{
		EntityID:     env.EntityID,
		SequenceNr:   env.SequenceNr,
		Payload:      p.Data,
		SerializerID: p.MediaType,
		Manifest:     n,
		Tags:         tags,
		Timestamp:    ts,
		WriterID:     env.WriterID,
		IsDeleted:    env.IsDeleted,
	}, nil
}

// MustMarshal marshals an envelope to its stored representation, or panics if
// it is unable to do so.
func MustMarshal(
	m marshalkit.ValueMarshaler,
	env Envelope,
) record.Event {
	rec, err := Marshal(m, env)
	if err != nil {
		panic(err)
	}

	return rec
}

// Unmarshal unmarshals an envelope from its stored representation.
func Unmarshal(
	m marshalkit.ValueMarshaler,
	rec record.Event,
) (Envelope, error) {
	ev, err := m.Unmarshal(
		marshalkit.Packet{
			MediaType: rec.SerializerID,
			Data:      rec.Payload,
		},
	)
	if err != nil {
		return Envelope{}, fmt.Errorf(
			"unable to unmarshal event record %q: %w",
			rec.ID,
			err,
		)
	}

	return Envelope{
		EntityID:   rec.EntityID,
		SequenceNr: rec.SequenceNr,
		Event:      ev,
		Tags:       rec.Tags,
		WriterID:   rec.WriterID,
		Timestamp:  rec.Timestamp,
		IsDeleted:  rec.IsDeleted,
	}, nil
}

// unwrap removes any Tagged wrappers from ev, returning the underlying event
// and the union of all tags, sorted and without duplicates.
func unwrap(ev interface{}, tags []string) (interface{}, []string) {
	set := map[string]struct{}{}
	for _, t := range tags {
		set[t] = struct{}{}
	}

	for {
		t, ok := ev.(Tagged)
		if !ok {
			break
		}

		for _, t := range t.Tags {
			set[t] = struct{}{}
		}

		ev = t.Event
	}

	if len(set) == 0 {
		return ev, nil
	}

	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)

	return ev, result
}
