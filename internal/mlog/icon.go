package mlog

import (
	"fmt"
	"io"

	"github.com/dogmatiq/iago/must"
)

const (
	// EntityIDIcon is the icon shown directly before an entity ID. It is an
	// "equals sign", indicating that the events belong to exactly the
	// displayed entity.
	EntityIDIcon Icon = "="

	// WriterIDIcon is the icon shown directly before the ID of the journal
	// instance that wrote an event. It is the mathematical "because" symbol,
	// indicating that the event exists "because of" the displayed writer.
	WriterIDIcon Icon = "∵"

	// SequenceIcon is the icon shown directly before a sequence number or a
	// range of sequence numbers. It is the "number sign".
	SequenceIcon Icon = "#"

	// OffsetIcon is the icon shown directly before a query offset. It is the
	// mathematical "member of set" symbol, indicating the position within the
	// set of all changes to the store.
	OffsetIcon Icon = "⋲"

	// AppendIcon is the icon shown to indicate that events are being appended
	// to the journal. It is an upward pointing arrow, as such events could be
	// considered as being "uploaded" to the store.
	AppendIcon Icon = "▲"

	// AppendErrorIcon is a variant of AppendIcon used when there is an error
	// condition. It is an hollow version of the regular append icon,
	// indicating that the requirement remains "unfulfilled".
	AppendErrorIcon Icon = "△"

	// ReadIcon is the icon shown to indicate that events are being read from
	// the journal. It is a downward pointing arrow, as such events could be
	// considered as being "downloaded" from the store.
	ReadIcon Icon = "▼"

	// ReadErrorIcon is a variant of ReadIcon used when there is an error
	// condition.
	ReadErrorIcon Icon = "▽"

	// DeleteIcon is the icon shown when records are being deleted. It is the
	// "multiplication" symbol, representing records being "crossed out".
	DeleteIcon Icon = "⨯"

	// RetryIcon is an icon shown when an operation is being re-attempted. It
	// is an open-circle with an arrow, indicating that the operation has "come
	// around again".
	RetryIcon Icon = "↻"

	// ErrorIcon is the icon shown when logging information about an error.
	// It is a heavy cross, indicating a failure.
	ErrorIcon Icon = "✖"

	// SnapshotIcon is the icon shown when a log message relates to the
	// snapshot store. It is the mathematical "therefore" symbol, representing
	// the state that results from the events.
	SnapshotIcon Icon = "∴"

	// QueryIcon is the icon shown when a log message relates to a continuous
	// query. It is the mathematical "sum" symbol, representing the
	// aggregation of events.
	QueryIcon Icon = "Σ"

	// SystemIcon is an icon shown when a log message relates to the internals of
	// the engine. It is a sprocket, representing the inner workings of the
	// machine.
	SystemIcon Icon = "⚙"

	// SeparatorIcon is an icon used to separate strings of unrelated text inside a
	// log message. It is a large bullet, intended to have a large visual impact.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

func (i Icon) String() string {
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel return an IconWithLabel containing this icon and the given label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		formatLabel(fmt.Sprintf(f, v...)),
	}
}

// WithID return an IconWithLabel containing this icon and an ID as its label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel("%s", FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := must.WriteTo(w, i.Icon)
	n += must.WriteString(w, " ")
	n += must.WriteString(w, i.Label)

	return int64(n), err
}

// formatLabel formats a label for display.
func formatLabel(label string) string {
	if label == "" {
		return "-"
	}

	return label
}
