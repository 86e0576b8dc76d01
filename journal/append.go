package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/record"
	"golang.org/x/sync/errgroup"
)

// Append commits events to the journal.
//
// Writes for the same entity are merged into a single atomic commit. Writes
// for different entities are committed concurrently.
//
// It returns one error per write, in the same order as writes. A nil error
// indicates that the write was committed. The second return value is non-nil
// only if no commit was attempted at all.
func (j *Journal) Append(
	ctx context.Context,
	writes []AtomicWrite,
) ([]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]error, len(writes))
	var g errgroup.Group

	for _, b := range merge(writes) {
		b := b // capture loop variable

		if err := j.Semaphore.Acquire(ctx); err != nil {
			b.fail(results, err)
			continue
		}

		g.Go(func() error {
			defer j.Semaphore.Release()

			err := j.appendBatch(ctx, b)
			b.fail(results, err)

			return nil
		})
	}

	_ = g.Wait() // goroutines always return nil

	return results, nil
}

// batch is the merged set of events for a single entity.
type batch struct {
	EntityID string
	Writes   []int
	Events   []envelope.Envelope
}

// fail sets the result of each write in the batch to err.
func (b batch) fail(results []error, err error) {
	for _, i := range b.Writes {
		results[i] = err
	}
}

// merge groups writes by entity, preserving the order in which each entity
// first appears.
func merge(writes []AtomicWrite) []batch {
	var batches []batch
	index := map[string]int{}

	for i, w := range writes {
		n, ok := index[w.EntityID]
		if !ok {
			n = len(batches)
			index[w.EntityID] = n
			batches = append(batches, batch{EntityID: w.EntityID})
		}

		batches[n].Writes = append(batches[n].Writes, i)
		batches[n].Events = append(batches[n].Events, w.Events...)
	}

	return batches
}

// validate checks that the events in b form a contiguous range of sequence
// numbers, and returns the lowest and highest of them.
func (b batch) validate() (lowest, highest int64, err error) {
	if strings.Contains(b.EntityID, "/") {
		return 0, 0, fmt.Errorf("%w: entity ID %q must not contain '/'", ErrInvalidWrite, b.EntityID)
	}

	if len(b.Events) == 0 {
		return 0, 0, fmt.Errorf("%w: no events for %q", ErrInvalidWrite, b.EntityID)
	}

	sort.SliceStable(
		b.Events,
		func(i, j int) bool {
			return b.Events[i].SequenceNr < b.Events[j].SequenceNr
		},
	)

	lowest = b.Events[0].SequenceNr
	if lowest < 1 {
		return 0, 0, fmt.Errorf("%w: sequence numbers of %q must begin at 1 or later", ErrInvalidWrite, b.EntityID)
	}

	for i, env := range b.Events {
		if env.EntityID != "" && env.EntityID != b.EntityID {
			return 0, 0, fmt.Errorf("%w: event for %q included in write for %q", ErrInvalidWrite, env.EntityID, b.EntityID)
		}

		if env.SequenceNr != lowest+int64(i) {
			return 0, 0, fmt.Errorf("%w: sequence numbers of %q are not contiguous", ErrInvalidWrite, b.EntityID)
		}
	}

	return lowest, lowest + int64(len(b.Events)) - 1, nil
}

// appendBatch commits the events for a single entity.
func (j *Journal) appendBatch(ctx context.Context, b batch) (err error) {
	lowest, highest, err := b.validate()
	if err != nil {
		return err
	}

	defer func() {
		mlog.LogAppend(j.Logger, b.EntityID, j.WriterID, lowest, highest, err)
	}()

	// Appends hold the entity lock in shared mode, ReadHighestSequenceNr()
	// holds it exclusively.
	unlock, err := j.locks.RLock(ctx, b.EntityID)
	if err != nil {
		return err
	}
	defer unlock()

	ctx, cancel := j.withWriteTimeout(ctx)
	defer cancel()

	now := time.Now()
	keys := j.keys()

	bodies := make([][]byte, len(b.Events))
	for i, env := range b.Events {
		env.EntityID = b.EntityID

		if env.WriterID == "" {
			env.WriterID = j.WriterID
		}

		if env.Timestamp.IsZero() {
			env.Timestamp = now
		}

		rec, err := envelope.Marshal(j.Marshaler, env)
		if err != nil {
			return err
		}

		bodies[i], err = record.Marshal(rec)
		if err != nil {
			return err
		}
	}

	return j.Store.Update(
		ctx,
		func(tx document.Tx) error {
			if err := j.advance(tx, b.EntityID, lowest, highest, now); err != nil {
				return err
			}

			for i, body := range bodies {
				seq := lowest + int64(i)

				if err := tx.Insert(keys.EventID(b.EntityID, seq), body); err != nil {
					if errors.Is(err, document.ErrDocumentExists) {
						return ConflictError{
							EntityID: b.EntityID,
							Expected: lowest - 1,
							Actual:   seq,
						}
					}

					return err
				}
			}

			return nil
		},
		document.ClusterWide(),
	)
}

// advance updates an entity's metadata record to reflect the commit of
// events in the range [lowest, highest].
func (j *Journal) advance(
	tx document.Tx,
	entityID string,
	lowest, highest int64,
	now time.Time,
) error {
	keys := j.keys()
	id := keys.MetadataID(entityID)

	doc, ok, err := tx.Load(id)
	if err != nil {
		return err
	}

	md := record.Metadata{
		EntityID:      entityID,
		MaxSequenceNr: highest,
	}

	if ok {
		md, err = record.Unmarshal[record.Metadata](doc)
		if err != nil {
			return err
		}

		if md.MaxSequenceNr != lowest-1 {
			return ConflictError{
				EntityID: entityID,
				Expected: lowest - 1,
				Actual:   md.MaxSequenceNr,
			}
		}

		if highest > md.MaxSequenceNr {
			md.MaxSequenceNr = highest
		}
	} else if err := j.markUnique(tx, entityID, now); err != nil {
		return err
	}

	md.Timestamp = now

	body, err := record.Marshal(md)
	if err != nil {
		return err
	}

	return tx.Put(id, body)
}

// markUnique creates the unique-entity marker for an entity if it does not
// already exist.
func (j *Journal) markUnique(tx document.Tx, entityID string, now time.Time) error {
	body, err := record.Marshal(record.UniqueEntity{
		EntityID:  entityID,
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	_, err = tx.PutIfAbsent(j.keys().UniqueEntityID(entityID), body)
	return err
}
