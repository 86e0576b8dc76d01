package sqldoc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/x/sqlx"
	"github.com/dogmatiq/docjournal/offset"
)

// transaction is an implementation of document.Tx for SQL.
type transaction struct {
	ctx      context.Context
	tx       *sql.Tx
	database string
	replica  string
	changed  []string
}

func (t *transaction) Load(id string) (_ document.Document, _ bool, err error) {
	defer sqlx.Recover(&err)

	doc, ok := loadDocument(t.ctx, t.tx, t.database, id)
	return doc, ok, nil
}

func (t *transaction) Insert(id string, body []byte) (err error) {
	defer sqlx.Recover(&err)

	if _, ok := loadDocument(t.ctx, t.tx, t.database, id); ok {
		return document.ErrDocumentExists
	}

	t.put(id, body)
	return nil
}

func (t *transaction) Put(id string, body []byte) (err error) {
	defer sqlx.Recover(&err)

	t.put(id, body)
	return nil
}

func (t *transaction) PutIfAbsent(id string, body []byte) (_ bool, err error) {
	defer sqlx.Recover(&err)

	if _, ok := loadDocument(t.ctx, t.tx, t.database, id); ok {
		return false, nil
	}

	t.put(id, body)
	return true, nil
}

func (t *transaction) Delete(id string) (err error) {
	defer sqlx.Recover(&err)

	n := sqlx.ExecRows(
		t.ctx,
		t.tx,
		`DELETE FROM document WHERE database = $1 AND id = $2`,
		t.database,
		id,
	)

	if n > 0 {
		t.changed = append(t.changed, id)
	}

	return nil
}

// put stores a document, assigning it the next etag of the database.
func (t *transaction) put(id string, body []byte) {
	cv := offset.Vector{}

	if prev, ok := loadDocument(t.ctx, t.tx, t.database, id); ok {
		cv = prev.ChangeVector
	}

	sqlx.Exec(
		t.ctx,
		t.tx,
		`UPDATE document_database SET etag = etag + 1 WHERE name = $1`,
		t.database,
	)

	etag := sqlx.QueryUint64(
		t.ctx,
		t.tx,
		`SELECT etag FROM document_database WHERE name = $1`,
		t.database,
	)

	cv = offset.Merge(cv, offset.Vector{t.replica: etag})

	if body == nil {
		body = []byte{}
	}

	sqlx.Exec(
		t.ctx,
		t.tx,
		`INSERT INTO document (database, id, body, change_vector, etag) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (database, id) DO UPDATE SET
			body = excluded.body,
			change_vector = excluded.change_vector,
			etag = excluded.etag`,
		t.database,
		id,
		body,
		cv.String(),
		etag,
	)

	t.changed = append(t.changed, id)
}

// loadDocument loads the document with the given ID.
func loadDocument(
	ctx context.Context,
	db sqlx.DB,
	database, id string,
) (document.Document, bool) {
	var (
		doc document.Document
		cv  string
	)

	ok := sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT id, body, change_vector, etag
		FROM document
		WHERE database = $1
		AND id = $2`,
		[]interface{}{database, id},
		&doc.ID,
		&doc.Body,
		&cv,
		&doc.Etag,
	)
	if !ok {
		return document.Document{}, false
	}

	doc.ChangeVector = parseChangeVector(doc.ID, cv)

	return doc, true
}

// scanDocument scans a document from a row produced by a query that selects
// the id, body, change_vector and etag columns, in that order.
func scanDocument(row sqlx.Scanner) document.Document {
	var (
		doc document.Document
		cv  string
	)

	sqlx.Must(row.Scan(&doc.ID, &doc.Body, &cv, &doc.Etag))
	doc.ChangeVector = parseChangeVector(doc.ID, cv)

	return doc
}

func parseChangeVector(id, cv string) offset.Vector {
	o, err := offset.Parse(cv)
	sqlx.Must(err)

	v, ok := o.(offset.Vector)
	if !ok {
		sqlx.Must(fmt.Errorf("document %q has a malformed change vector %q", id, cv))
	}

	return v
}
