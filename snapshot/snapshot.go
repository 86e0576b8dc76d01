package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// Metadata identifies a snapshot.
type Metadata struct {
	EntityID   string
	SequenceNr int64
	Timestamp  time.Time
}

// Snapshot is the state of an entity as at a specific sequence number.
type Snapshot struct {
	Metadata
	State interface{}
}

// Criteria selects snapshots within a window of sequence numbers and
// timestamps. All bounds are inclusive.
//
// A zero MaxSequenceNr or MaxTimestamp imposes no upper bound. The zero value
// matches every snapshot.
type Criteria struct {
	MinSequenceNr int64
	MaxSequenceNr int64
	MinTimestamp  time.Time
	MaxTimestamp  time.Time
}

// LatestCriteria returns criteria that match every snapshot, such that the
// latest snapshot is selected.
func LatestCriteria() Criteria {
	return Criteria{}
}

// Matches returns true if md is inside the window.
func (c Criteria) Matches(md Metadata) bool {
	if md.SequenceNr < c.MinSequenceNr {
		return false
	}

	if c.MaxSequenceNr != 0 && md.SequenceNr > c.MaxSequenceNr {
		return false
	}

	if md.Timestamp.Before(c.MinTimestamp) {
		return false
	}

	if !c.MaxTimestamp.IsZero() && md.Timestamp.After(c.MaxTimestamp) {
		return false
	}

	return true
}

// beyond returns true if seq is greater than the maximum sequence number.
func (c Criteria) beyond(seq int64) bool {
	return c.MaxSequenceNr != 0 && seq > c.MaxSequenceNr
}

// ConsistencyLevel is the durability guarantee required when saving a
// snapshot.
type ConsistencyLevel int

const (
	// Single saves the snapshot to the replica that accepts the write.
	Single ConsistencyLevel = iota

	// Majority waits until a majority of replicas have applied the write.
	Majority

	// ClusterWide saves the snapshot within a cluster-wide transaction.
	ClusterWide
)

func (l ConsistencyLevel) String() string {
	switch l {
	case Single:
		return "single"
	case Majority:
		return "majority"
	case ClusterWide:
		return "cluster-wide"
	default:
		return fmt.Sprintf("<unknown consistency level %d>", int(l))
	}
}

// ParseConsistencyLevel parses the string representation of a consistency
// level. It is case-insensitive.
func ParseConsistencyLevel(s string) (ConsistencyLevel, error) {
	switch strings.ToLower(s) {
	case "", "single":
		return Single, nil
	case "majority":
		return Majority, nil
	case "cluster-wide", "clusterwide":
		return ClusterWide, nil
	default:
		return 0, fmt.Errorf("unrecognized consistency level: %q", s)
	}
}

// MismatchError is returned when saving a snapshot within a cluster-wide
// transaction if the existing record at the snapshot's ID describes a
// different sequence number.
type MismatchError struct {
	ID       string
	Expected int64
	Actual   int64
}

func (e MismatchError) Error() string {
	return fmt.Sprintf(
		"snapshot record %q has sequence number %d, expected %d",
		e.ID,
		e.Actual,
		e.Expected,
	)
}
