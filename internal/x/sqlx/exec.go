package sqlx

import (
	"context"
	"database/sql"
)

// Exec executes a statement on the given DB.
func Exec(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) sql.Result {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)
	return res
}

// ExecRows executes a statement on the given DB and returns the number of
// rows affected.
func ExecRows(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) int64 {
	res := Exec(ctx, db, query, args...)

	n, err := res.RowsAffected()
	Must(err)

	return n
}
