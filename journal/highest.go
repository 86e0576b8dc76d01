package journal

import (
	"context"

	"github.com/dogmatiq/docjournal/document"
	"golang.org/x/sync/errgroup"
)

// ReadHighestSequenceNr returns the highest sequence number committed for an
// entity, or 0 if no events have been committed.
//
// Deleting events does not affect the value returned.
func (j *Journal) ReadHighestSequenceNr(ctx context.Context, entityID string) (int64, error) {
	unlock, err := j.locks.Lock(ctx, entityID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	ctx, cancel := j.withReadTimeout(ctx)
	defer cancel()

	if !j.ReadHighestFromAllReplicas {
		return j.readHighest(ctx, j.Store, entityID)
	}

	replicas := j.Store.Replicas()
	results := make([]int64, len(replicas))
	g, ctx := errgroup.WithContext(ctx)

	for i, r := range replicas {
		i, r := i, r // capture loop variables

		g.Go(func() error {
			n, err := j.readHighest(ctx, r, entityID)
			results[i] = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	var max int64
	for _, n := range results {
		if n > max {
			max = n
		}
	}

	return max, nil
}

func (j *Journal) readHighest(
	ctx context.Context,
	r document.Reader,
	entityID string,
) (int64, error) {
	md, _, err := j.loadMetadata(ctx, r, entityID)
	return md.MaxSequenceNr, err
}
