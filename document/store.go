package document

import (
	"context"
)

// Reader is an interface for reading documents from a single replica.
type Reader interface {
	// ReplicaID returns the identifier of the replica this reader is bound to.
	ReplicaID() string

	// Load returns the document with the given ID.
	//
	// ok is false if the document does not exist.
	Load(ctx context.Context, id string) (doc Document, ok bool, err error)

	// Scan returns up to limit documents with IDs that begin with prefix and
	// sort after startAfter, in ID order.
	Scan(ctx context.Context, prefix, startAfter string, limit int) ([]Document, error)

	// Query returns up to limit documents matching q, ordered by etag.
	Query(ctx context.Context, q Query, limit int) ([]Document, error)
}

// Store is a connected handle to a single database within a (possibly
// replicated) document store.
//
// Stores are safe for concurrent use.
type Store interface {
	Reader

	// Replicas returns a reader for every replica of the database, including
	// the one this store is bound to.
	Replicas() []Reader

	// DatabaseExists returns true if the database has been created.
	DatabaseExists(ctx context.Context) (bool, error)

	// CreateDatabase creates the database.
	//
	// It returns ErrDatabaseExists if the database already exists.
	CreateDatabase(ctx context.Context) error

	// CreateIndex defines an index. It is idempotent.
	CreateIndex(ctx context.Context, i Index) error

	// Update executes fn within an atomic write transaction.
	//
	// If fn returns an error the transaction is rolled back.
	Update(ctx context.Context, fn func(Tx) error, options ...WriteOption) error

	// WatchPrefix returns a watch that is signaled whenever a document with an
	// ID beginning with prefix is written or deleted on this replica.
	WatchPrefix(prefix string) *Watch

	// WatchIndex returns a watch that is signaled whenever a document covered
	// by the named index is written or deleted on this replica.
	WatchIndex(name string) (*Watch, error)

	// Close closes the store.
	Close() error
}

// Tx is a write transaction.
type Tx interface {
	// Load returns the document with the given ID, including any changes made
	// within this transaction.
	Load(id string) (doc Document, ok bool, err error)

	// Insert creates a new document.
	//
	// It returns ErrDocumentExists if the ID is already in use.
	Insert(id string, body []byte) error

	// Put creates or replaces a document.
	Put(id string, body []byte) error

	// PutIfAbsent creates a document only if the ID is not already in use.
	//
	// It returns true if the document was created.
	PutIfAbsent(id string, body []byte) (bool, error)

	// Delete removes a document. It is not an error if it does not exist.
	Delete(id string) error
}

// WriteConcern describes the durability guarantees required of a write.
type WriteConcern struct {
	// ClusterWide requires the transaction to be evaluated against the state
	// agreed by the whole cluster, rather than that of a single replica.
	ClusterWide bool

	// Replicas is the number of replicas other than the one that accepted
	// the write that must have applied it before Update() returns.
	Replicas int
}

// WriteOption configures the write concern of a call to Store.Update().
type WriteOption func(*WriteConcern)

// ClusterWide returns an option that evaluates a transaction cluster-wide.
func ClusterWide() WriteOption {
	return func(wc *WriteConcern) {
		wc.ClusterWide = true
	}
}

// WaitForReplicas returns an option that blocks until n other replicas have
// applied a write.
func WaitForReplicas(n int) WriteOption {
	if n < 0 {
		panic("replica count must not be negative")
	}

	return func(wc *WriteConcern) {
		wc.Replicas = n
	}
}

// ResolveWriteConcern builds a write concern from a set of options.
func ResolveWriteConcern(options ...WriteOption) WriteConcern {
	var wc WriteConcern

	for _, o := range options {
		o(&wc)
	}

	return wc
}
