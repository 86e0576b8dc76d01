package sqlx

import (
	"context"
	"database/sql"
)

// DB is the subset of the query methods shared by *sql.DB and *sql.Tx.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ DB = (*sql.DB)(nil)
	_ DB = (*sql.Tx)(nil)
)

// Scanner is an interface satisfied by *sql.Rows and *sql.Row.
type Scanner interface {
	Scan(...interface{}) error
}
