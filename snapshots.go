package docjournal

import (
	"context"

	"github.com/dogmatiq/docjournal/snapshot"
)

// Snapshots is the engine's snapshot store.
//
// Each operation waits for the engine to become ready before it is performed.
type Snapshots struct {
	gate  *gate
	store *snapshot.Store
}

// Load returns the latest snapshot of an entity that matches c.
func (s *Snapshots) Load(
	ctx context.Context,
	entityID string,
	c snapshot.Criteria,
) (snapshot.Snapshot, bool, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return snapshot.Snapshot{}, false, err
	}

	return s.store.Load(ctx, entityID, c)
}

// Save stores a snapshot of an entity's state.
func (s *Snapshots) Save(ctx context.Context, md snapshot.Metadata, state interface{}) error {
	if err := s.gate.Wait(ctx); err != nil {
		return err
	}

	return s.store.Save(ctx, md, state)
}

// Delete removes a single snapshot.
func (s *Snapshots) Delete(ctx context.Context, md snapshot.Metadata) error {
	if err := s.gate.Wait(ctx); err != nil {
		return err
	}

	return s.store.Delete(ctx, md)
}

// DeleteMatching removes every snapshot of an entity that matches c.
//
// Beware that the zero value of snapshot.Criteria matches, and therefore
// deletes, all of the entity's snapshots.
func (s *Snapshots) DeleteMatching(
	ctx context.Context,
	entityID string,
	c snapshot.Criteria,
) error {
	if err := s.gate.Wait(ctx); err != nil {
		return err
	}

	return s.store.DeleteMatching(ctx, entityID, c)
}
