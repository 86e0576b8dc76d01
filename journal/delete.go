package journal

import (
	"context"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/record"
)

// deletePageSize is the maximum number of events deleted by each transaction
// within DeleteUpTo().
const deletePageSize = 1024

// DeleteUpTo deletes an entity's events with sequence numbers less than or
// equal to to.
//
// The entity's metadata is retained, so ReadHighestSequenceNr() is unaffected.
func (j *Journal) DeleteUpTo(ctx context.Context, entityID string, to int64) error {
	ctx, cancel := j.withWriteTimeout(ctx)
	defer cancel()

	prefix := j.keys().EventPrefix(entityID)
	total := 0

	for {
		docs, err := j.Store.Scan(ctx, prefix, "", deletePageSize)
		if err != nil {
			return err
		}

		var ids []string
		for _, doc := range docs {
			seq, err := record.ParseSequence(doc.ID)
			if err != nil {
				return err
			}

			if seq > to {
				break
			}

			ids = append(ids, doc.ID)
		}

		if len(ids) == 0 {
			break
		}

		if err := j.Store.Update(
			ctx,
			func(tx document.Tx) error {
				for _, id := range ids {
					if err := tx.Delete(id); err != nil {
						return err
					}
				}
				return nil
			},
			document.ClusterWide(),
		); err != nil {
			return err
		}

		total += len(ids)

		if len(ids) < deletePageSize {
			break
		}
	}

	if total > 0 {
		mlog.LogDelete(j.Logger, entityID, to, total)
	}

	return nil
}
