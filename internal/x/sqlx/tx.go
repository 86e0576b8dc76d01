package sqlx

import (
	"context"
	"database/sql"
)

// Begin starts a new transaction, or panics if unable to do so.
//
// The caller should defer a call to tx.Rollback(), which is a no-op once the
// transaction has been committed.
func Begin(ctx context.Context, db *sql.DB) *sql.Tx {
	tx, err := db.BeginTx(ctx, nil)
	Must(err)
	return tx
}

// Commit commits tx, or panics if unable to do so.
func Commit(tx *sql.Tx) {
	Must(tx.Commit())
}
