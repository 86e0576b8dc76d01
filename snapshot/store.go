package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/internal/x/syncx"
	"github.com/dogmatiq/docjournal/record"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/marshalkit"
)

var (
	// DefaultReadTimeout is the default timeout applied to read operations.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default timeout applied to write operations.
	DefaultWriteTimeout = 15 * time.Second
)

// pageSize is the number of snapshot records loaded by each scan.
const pageSize = 1024

// Store is a store of entity snapshots within a document store.
type Store struct {
	// Store is the document store that contains the snapshots.
	Store document.Store

	// Marshaler is used to marshal and unmarshal snapshot state.
	Marshaler marshalkit.ValueMarshaler

	// Keys is the key scheme used to identify records. If its namespace is
	// empty, record.DefaultNamespace is used.
	Keys record.Keys

	// Consistency is the durability guarantee required by writes.
	Consistency ConsistencyLevel

	// ReadTimeout is the timeout applied to read operations. If it is zero,
	// DefaultReadTimeout is used.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout applied to write operations. If it is zero,
	// DefaultWriteTimeout is used.
	WriteTimeout time.Duration

	// Logger is the target for log messages from the store.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	locks syncx.RWMutexNamespace
}

// Load returns the latest snapshot of an entity that matches c.
func (s *Store) Load(
	ctx context.Context,
	entityID string,
	c Criteria,
) (Snapshot, bool, error) {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.ReadTimeout, DefaultReadTimeout)
	defer cancel()

	var (
		latest record.Snapshot
		found  bool
	)

	err := s.scan(
		ctx,
		entityID,
		c,
		func(rec record.Snapshot) {
			latest = rec
			found = true
		},
	)
	if !found || err != nil {
		return Snapshot{}, false, err
	}

	state, err := s.Marshaler.Unmarshal(
		marshalkit.Packet{
			MediaType: latest.SerializerID,
			Data:      latest.Payload,
		},
	)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf(
			"unable to unmarshal snapshot record %q: %w",
			latest.ID,
			err,
		)
	}

	mlog.LogSnapshot(s.Logger, entityID, latest.SequenceNr, "snapshot loaded")

	return Snapshot{
		Metadata: Metadata{
			EntityID:   latest.EntityID,
			SequenceNr: latest.SequenceNr,
			Timestamp:  latest.Timestamp,
		},
		State: state,
	}, true, nil
}

// Save stores a snapshot, replacing any existing snapshot with the same
// entity ID and sequence number.
//
// If md.Timestamp is zero the current time is used.
func (s *Store) Save(
	ctx context.Context,
	md Metadata,
	state interface{},
) error {
	p, err := s.Marshaler.Marshal(state)
	if err != nil {
		return fmt.Errorf(
			"unable to marshal snapshot #%d of %q: %w",
			md.SequenceNr,
			md.EntityID,
			err,
		)
	}

	_, n, err := p.ParseMediaType()
	if err != nil {
		// CODE COVERAGE: This branch would require the marshaler to violate its
		// own requirements on the format of the media-type.
		panic(err)
	}

	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now()
	}

	body, err := record.Marshal(record.Snapshot{
		EntityID:     md.EntityID,
		SequenceNr:   md.SequenceNr,
		Timestamp:    md.Timestamp,
		Payload:      p.Data,
		SerializerID: p.MediaType,
		Manifest:     n,
	})
	if err != nil {
		return err
	}

	ctx, cancel := linger.ContextWithTimeout(ctx, s.WriteTimeout, DefaultWriteTimeout)
	defer cancel()

	id := s.keys().SnapshotID(md.EntityID, md.SequenceNr)

	if s.Consistency == ClusterWide {
		err = s.saveClusterWide(ctx, id, md.SequenceNr, body)
	} else {
		err = s.Store.Update(
			ctx,
			func(tx document.Tx) error {
				return tx.Put(id, body)
			},
			s.writeOptions()...,
		)
	}

	if err == nil {
		mlog.LogSnapshot(s.Logger, md.EntityID, md.SequenceNr, "snapshot saved (%s)", s.Consistency)
	}

	return err
}

// saveClusterWide overwrites the snapshot record with the given ID within a
// cluster-wide transaction.
func (s *Store) saveClusterWide(
	ctx context.Context,
	id string,
	seq int64,
	body []byte,
) error {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return s.Store.Update(
		ctx,
		func(tx document.Tx) error {
			doc, ok, err := tx.Load(id)
			if err != nil {
				return err
			}

			if ok {
				existing, err := record.Unmarshal[record.Snapshot](doc)
				if err != nil {
					return err
				}

				if existing.SequenceNr != seq {
					return MismatchError{
						ID:       id,
						Expected: seq,
						Actual:   existing.SequenceNr,
					}
				}
			}

			return tx.Put(id, body)
		},
		s.writeOptions()...,
	)
}

// Delete deletes a single snapshot.
//
// The deletion is made with the same consistency level as Save().
func (s *Store) Delete(ctx context.Context, md Metadata) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.WriteTimeout, DefaultWriteTimeout)
	defer cancel()

	return s.Store.Update(
		ctx,
		func(tx document.Tx) error {
			return tx.Delete(
				s.keys().SnapshotID(md.EntityID, md.SequenceNr),
			)
		},
		s.writeOptions()...,
	)
}

// writeOptions returns the document store write options that provide the
// store's consistency level.
func (s *Store) writeOptions() []document.WriteOption {
	switch s.Consistency {
	case Majority:
		return []document.WriteOption{
			document.WaitForReplicas(len(s.Store.Replicas()) / 2),
		}
	case ClusterWide:
		return []document.WriteOption{
			document.ClusterWide(),
		}
	default:
		return nil
	}
}

// DeleteMatching deletes all of an entity's snapshots that match c.
//
// The zero value of Criteria matches every snapshot, so passing it deletes
// all of the entity's snapshots. The deletions are made with the same
// consistency level as Save().
func (s *Store) DeleteMatching(
	ctx context.Context,
	entityID string,
	c Criteria,
) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.WriteTimeout, DefaultWriteTimeout)
	defer cancel()

	var ids []string

	if err := s.scan(
		ctx,
		entityID,
		c,
		func(rec record.Snapshot) {
			ids = append(ids, rec.ID)
		},
	); err != nil {
		return err
	}

	for len(ids) > 0 {
		n := len(ids)
		if n > pageSize {
			n = pageSize
		}

		page := ids[:n]
		ids = ids[n:]

		if err := s.Store.Update(
			ctx,
			func(tx document.Tx) error {
				for _, id := range page {
					if err := tx.Delete(id); err != nil {
						return err
					}
				}
				return nil
			},
			s.writeOptions()...,
		); err != nil {
			return err
		}

		mlog.LogSnapshot(s.Logger, entityID, c.MaxSequenceNr, "deleted %d snapshot(s)", len(page))
	}

	return nil
}

// scan calls fn for each of an entity's snapshots that match c, in order of
// ascending sequence number.
func (s *Store) scan(
	ctx context.Context,
	entityID string,
	c Criteria,
	fn func(record.Snapshot),
) error {
	keys := s.keys()
	prefix := keys.SnapshotPrefix(entityID)

	var after string
	if c.MinSequenceNr > 0 {
		after = keys.SnapshotID(entityID, c.MinSequenceNr-1)
	}

	for {
		docs, err := s.Store.Scan(ctx, prefix, after, pageSize)
		if err != nil {
			return err
		}

		for _, doc := range docs {
			rec, err := record.Unmarshal[record.Snapshot](doc)
			if err != nil {
				return err
			}

			if c.beyond(rec.SequenceNr) {
				return nil
			}

			md := Metadata{
				EntityID:   rec.EntityID,
				SequenceNr: rec.SequenceNr,
				Timestamp:  rec.Timestamp,
			}

			if c.Matches(md) {
				fn(rec)
			}

			after = doc.ID
		}

		if len(docs) < pageSize {
			return nil
		}
	}
}

func (s *Store) keys() record.Keys {
	if s.Keys.Namespace == "" {
		return record.NewKeys("")
	}

	return s.Keys
}
