package document

import (
	"errors"
	"strings"

	"github.com/dogmatiq/docjournal/offset"
)

// Document is a single record within a document store.
type Document struct {
	// ID uniquely identifies the document within its database.
	ID string

	// Body is the document's encoded content.
	Body []byte

	// ChangeVector records the revision of the document on each replica that
	// has written it.
	ChangeVector offset.Vector

	// Etag is the revision of the document on the replica that served it.
	// Query results are ordered by this value.
	Etag uint64
}

var (
	// ErrDocumentExists is returned when inserting a document with an ID that
	// is already in use.
	ErrDocumentExists = errors.New("document already exists")

	// ErrDatabaseNotFound is returned when operating on a database that has
	// not been created.
	ErrDatabaseNotFound = errors.New("database does not exist")

	// ErrDatabaseExists is returned by CreateDatabase() when the database
	// already exists.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrDatabaseUnavailable is a transient error returned while a database
	// is starting up, disabled or otherwise unreachable.
	ErrDatabaseUnavailable = errors.New("database is unavailable")

	// ErrIndexNotFound is returned when querying or watching an index that
	// has not been created.
	ErrIndexNotFound = errors.New("index does not exist")

	// ErrInsufficientReplicas is returned when a write can not be replicated
	// to the requested number of replicas.
	ErrInsufficientReplicas = errors.New("not enough replicas to satisfy the write concern")

	// ErrClosed is returned when using a store that has been closed.
	ErrClosed = errors.New("document store is closed")
)

// HasPrefix returns true if the document's ID begins with p.
func (d Document) HasPrefix(p string) bool {
	return strings.HasPrefix(d.ID, p)
}
