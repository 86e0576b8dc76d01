package docjournal

import (
	"context"

	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/journal"
)

// Journal is the engine's event journal.
//
// Each operation waits for the engine to become ready before it is performed.
type Journal struct {
	gate    *gate
	journal *journal.Journal
}

// Append atomically commits each of the given writes.
//
// See journal.Journal.Append().
func (j *Journal) Append(ctx context.Context, writes []journal.AtomicWrite) ([]error, error) {
	if err := j.gate.Wait(ctx); err != nil {
		return nil, err
	}

	return j.journal.Append(ctx, writes)
}

// ReadHighestSequenceNr returns the highest sequence number committed for an
// entity.
func (j *Journal) ReadHighestSequenceNr(ctx context.Context, entityID string) (int64, error) {
	if err := j.gate.Wait(ctx); err != nil {
		return 0, err
	}

	return j.journal.ReadHighestSequenceNr(ctx, entityID)
}

// Replay calls fn for up to max of an entity's events with sequence numbers in
// the range [from, to].
//
// to is limited to the entity's highest sequence number, so math.MaxInt64 may
// be used to replay every event.
func (j *Journal) Replay(
	ctx context.Context,
	entityID string,
	from, to, max int64,
	fn func(envelope.Envelope) error,
) error {
	if err := j.gate.Wait(ctx); err != nil {
		return err
	}

	highest, err := j.journal.ReadHighestSequenceNr(ctx, entityID)
	if err != nil {
		return err
	}

	if to > highest {
		to = highest
	}

	return j.journal.Replay(ctx, entityID, from, to, max, fn)
}

// DeleteUpTo deletes an entity's events with sequence numbers up to and
// including to.
func (j *Journal) DeleteUpTo(ctx context.Context, entityID string, to int64) error {
	if err := j.gate.Wait(ctx); err != nil {
		return err
	}

	return j.journal.DeleteUpTo(ctx, entityID, to)
}
