package offset

import (
	"errors"
	"strconv"
)

// Offset is a resumable read position within a query.
//
// It is one of None, Sequence or Vector.
type Offset interface {
	// String returns the serialized form of the offset, as accepted by Parse().
	String() string

	isOffset()
}

// None is an offset that imposes no lower bound. Reading from None starts at
// the beginning of the query.
type None struct{}

// Sequence is an offset within a single entity's events, expressed as the
// sequence number of the last event that was read.
type Sequence int64

func (None) isOffset()     {}
func (Sequence) isOffset() {}
func (Vector) isOffset()   {}

func (None) String() string {
	return ""
}

func (s Sequence) String() string {
	return strconv.FormatInt(int64(s), 10)
}

var (
	// ErrUnsupportedOffset indicates that an offset of the wrong type was
	// passed to a query.
	ErrUnsupportedOffset = errors.New("unsupported offset type")

	// ErrIncomparable indicates that two offsets have no meaningful order.
	ErrIncomparable = errors.New("you can't directly compare two change vectors")
)

// Compare returns -1, 0 or +1 if a is less than, equal to or greater than b,
// respectively.
//
// Only None and Sequence offsets are ordered. Vector offsets are partially
// ordered at best, so comparing them always fails with ErrIncomparable.
func Compare(a, b Offset) (int, error) {
	x, err := ordinal(a)
	if err != nil {
		return 0, err
	}

	y, err := ordinal(b)
	if err != nil {
		return 0, err
	}

	switch {
	case x < y:
		return -1, nil
	case x > y:
		return +1, nil
	default:
		return 0, nil
	}
}

func ordinal(o Offset) (int64, error) {
	switch o := o.(type) {
	case nil, None:
		return 0, nil
	case Sequence:
		return int64(o), nil
	case Vector:
		return 0, ErrIncomparable
	default:
		return 0, ErrUnsupportedOffset
	}
}
