package offset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Vector is an offset across a replicated index.
//
// It maps each replica's identifier to the highest revision ("etag") from that
// replica that has been observed. Vectors are not totally ordered; they can
// only be merged and used as a lower bound.
type Vector map[string]uint64

// Merge returns the pointwise maximum of a and b.
//
// Neither a nor b is modified.
func Merge(a, b Vector) Vector {
	r := make(Vector, len(a)+len(b))

	for k, v := range a {
		r[k] = v
	}

	for k, v := range b {
		if v > r[k] {
			r[k] = v
		}
	}

	return r
}

// Covers returns true if every revision in cv is less than or equal to the
// corresponding revision in v.
//
// A document whose change vector is covered by v has already been observed by
// a reader positioned at v.
func (v Vector) Covers(cv Vector) bool {
	for k, etag := range cv {
		if seen, ok := v[k]; !ok || etag > seen {
			return false
		}
	}

	return true
}

// Replicas returns the replica identifiers in v, sorted.
func (v Vector) Replicas() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// String returns the serialized form of the vector, such as "A:10, B:3".
func (v Vector) String() string {
	var w strings.Builder

	for i, k := range v.Replicas() {
		if i > 0 {
			w.WriteString(", ")
		}

		w.WriteString(k)
		w.WriteByte(':')
		w.WriteString(strconv.FormatUint(v[k], 10))
	}

	return w.String()
}

// Parse parses the serialized form of an offset.
//
// The empty string is None, a bare integer is a Sequence and anything else is
// expected to be a Vector.
func Parse(s string) (Offset, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return None{}, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Sequence(n), nil
	}

	v := Vector{}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)

		i := strings.LastIndexByte(part, ':')
		if i <= 0 {
			return nil, fmt.Errorf("malformed offset component %q", part)
		}

		etag, err := strconv.ParseUint(part[i+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed offset component %q: %w", part, err)
		}

		k := part[:i]
		if _, ok := v[k]; ok {
			return nil, fmt.Errorf("duplicate replica %q in offset", k)
		}

		v[k] = etag
	}

	return v, nil
}

// Bounder is a query that can be restricted to documents revised after some
// point.
type Bounder interface {
	// OrRevisedAfter adds a disjunct matching documents that were revised on
	// the given replica after the given etag.
	OrRevisedAfter(replica string, etag uint64)

	// OrRevisedOutside adds a disjunct matching documents that were revised on
	// any replica other than those given.
	OrRevisedOutside(replicas []string)
}

// ApplyAsLowerBound restricts q to documents that have not already been
// observed by a reader positioned at o.
//
// An empty vector or None imposes no bound. It returns ErrUnsupportedOffset if
// o is not a Vector or None.
func ApplyAsLowerBound(q Bounder, o Offset) error {
	switch o := o.(type) {
	case nil, None:
		return nil
	case Vector:
		if len(o) == 0 {
			return nil
		}

		replicas := o.Replicas()
		for _, k := range replicas {
			q.OrRevisedAfter(k, o[k])
		}

		q.OrRevisedOutside(replicas)

		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedOffset, o)
	}
}
