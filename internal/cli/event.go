package cli

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/offset"
	"github.com/dogmatiq/marshalkit"
)

// RawEvent is an event with arbitrary JSON content.
type RawEvent struct {
	Data json.RawMessage
}

// MarshalJSON returns the event's JSON content.
func (e RawEvent) MarshalJSON() ([]byte, error) {
	if len(e.Data) == 0 {
		return []byte("null"), nil
	}

	return e.Data, nil
}

// UnmarshalJSON sets the event's JSON content.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	e.Data = append(e.Data[:0], data...)
	return nil
}

// newMarshaler returns the marshaler used for events written and read by the
// CLI.
func newMarshaler() marshalkit.Marshaler {
	return docjournal.NewDefaultMarshaler(
		reflect.TypeOf(RawEvent{}),
	)
}

// eventOutput is the JSON representation of an event written to the output.
type eventOutput struct {
	Offset     string          `json:"offset,omitempty"`
	EntityID   string          `json:"entity_id"`
	SequenceNr int64           `json:"sequence_nr"`
	Timestamp  time.Time       `json:"timestamp"`
	Tags       []string        `json:"tags,omitempty"`
	Event      json.RawMessage `json:"event"`
}

// entityOutput is the JSON representation of an entity ID written to the
// output.
type entityOutput struct {
	Offset   string `json:"offset,omitempty"`
	EntityID string `json:"entity_id"`
}

// formatOffset returns the string form of o, or an empty string if o is nil.
func formatOffset(o offset.Offset) string {
	if o == nil {
		return ""
	}

	return o.String()
}

// eventData returns the JSON content of an unmarshaled event.
func eventData(ev interface{}) (json.RawMessage, error) {
	if raw, ok := ev.(RawEvent); ok {
		return raw.Data, nil
	}

	return json.Marshal(ev)
}
