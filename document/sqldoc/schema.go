package sqldoc

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/docjournal/internal/x/sqlx"
)

// CreateSchema creates the tables used by document stores within db.
//
// It is safe to call CreateSchema() on a database that already contains the
// schema.
func CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	tx := sqlx.Begin(ctx, db)
	defer tx.Rollback() // nolint:errcheck

	sqlx.Exec(
		ctx,
		tx,
		`CREATE TABLE IF NOT EXISTS document_database (
			name TEXT NOT NULL PRIMARY KEY,
			etag INTEGER NOT NULL DEFAULT 0
		)`,
	)

	sqlx.Exec(
		ctx,
		tx,
		`CREATE TABLE IF NOT EXISTS document (
			database      TEXT NOT NULL,
			id            TEXT NOT NULL,
			body          BLOB,
			change_vector TEXT NOT NULL,
			etag          INTEGER NOT NULL,

			PRIMARY KEY (database, id)
		)`,
	)

	sqlx.Exec(
		ctx,
		tx,
		`CREATE INDEX IF NOT EXISTS document_by_etag ON document (database, etag)`,
	)

	sqlx.Exec(
		ctx,
		tx,
		`CREATE TABLE IF NOT EXISTS document_index (
			database   TEXT NOT NULL,
			name       TEXT NOT NULL,
			collection TEXT NOT NULL,

			PRIMARY KEY (database, name)
		)`,
	)

	sqlx.Commit(tx)

	return nil
}

// DropSchema removes the tables created by CreateSchema().
func DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS document_index`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS document`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS document_database`)

	return nil
}
