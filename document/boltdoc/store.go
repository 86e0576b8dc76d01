package boltdoc

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

// DefaultReplicaID is the replica identifier used when none is specified.
const DefaultReplicaID = "A"

// Store is an implementation of document.Store backed by a single BoltDB
// database file.
//
// A BoltDB file can hold many databases, each in its own top-level bucket.
// There is only ever one replica.
type Store struct {
	db       *database
	name     []byte
	replica  string
	notifier document.Notifier

	m       sync.RWMutex
	indexes map[string]document.Index
}

var _ document.Store = (*Store)(nil)

// Option configures a store.
type Option func(*Store)

// WithReplicaID returns an option that sets the identifier used for the
// store's only replica in document change vectors.
//
// If this option is omitted DefaultReplicaID is used.
func WithReplicaID(id string) Option {
	if id == "" || strings.ContainsAny(id, ":,") {
		panic("replica ID must be non-empty and must not contain ':' or ','")
	}

	return func(s *Store) {
		s.replica = id
	}
}

// New returns a store for the named database within db.
//
// Closing the store does not close db.
func New(db *bbolt.DB, name string, options ...Option) *Store {
	return newStore(&database{actual: db}, name, options)
}

// Open opens the BoltDB file at the given path and returns a store for the
// named database within it.
//
// The file is closed when the store is closed.
func Open(
	ctx context.Context,
	path string,
	name string,
	options ...Option,
) (*Store, error) {
	db, err := bboltx.Open(ctx, path, 0, nil)
	if err != nil {
		return nil, err
	}

	return newStore(
		&database{
			actual: db,
			close:  (*bbolt.DB).Close,
		},
		name,
		options,
	), nil
}

func newStore(db *database, name string, options []Option) *Store {
	if name == "" {
		panic("database name must not be empty")
	}

	s := &Store{
		db:      db,
		name:    []byte(name),
		replica: DefaultReplicaID,
		indexes: map[string]document.Index{},
	}

	for _, o := range options {
		o(s)
	}

	return s
}

// ReplicaID returns the identifier of the store's replica.
func (s *Store) ReplicaID() string {
	return s.replica
}

// Replicas returns the store itself, as it is the only replica.
func (s *Store) Replicas() []document.Reader {
	return []document.Reader{s}
}

// DatabaseExists returns true if the database has been created.
func (s *Store) DatabaseExists(ctx context.Context) (exists bool, err error) {
	err = s.db.view(ctx, func(tx *bbolt.Tx) {
		exists = tx.Bucket(s.name) != nil
	})

	return exists, err
}

// CreateDatabase creates the database.
func (s *Store) CreateDatabase(ctx context.Context) error {
	return s.db.update(ctx, func(tx *bbolt.Tx) {
		if tx.Bucket(s.name) != nil {
			bboltx.Must(document.ErrDatabaseExists)
		}

		bboltx.CreateBucketIfNotExists(tx, s.name, docsKey)
		bboltx.CreateBucketIfNotExists(tx, s.name, etagsKey)
		bboltx.CreateBucketIfNotExists(tx, s.name, metaKey)
		bboltx.CreateBucketIfNotExists(tx, s.name, indexesKey)
	})
}

// CreateIndex defines an index.
//
// Index definitions are held in memory; the index name is recorded in the
// database so that it is visible to other processes sharing the file.
func (s *Store) CreateIndex(ctx context.Context, i document.Index) error {
	if i.Name == "" {
		panic("index name must not be empty")
	}

	err := s.db.update(ctx, func(tx *bbolt.Tx) {
		root := s.root(tx)
		b := bboltx.CreateBucketIfNotExists(root, indexesKey)
		bboltx.Put(b, []byte(i.Name), []byte(i.Collection))
	})
	if err != nil {
		return err
	}

	s.m.Lock()
	s.indexes[i.Name] = i
	s.m.Unlock()

	return nil
}

// Load returns the document with the given ID.
func (s *Store) Load(ctx context.Context, id string) (doc document.Document, ok bool, err error) {
	err = s.db.view(ctx, func(tx *bbolt.Tx) {
		doc, ok = loadDocument(s.root(tx), id)
	})

	return doc, ok, err
}

// Scan returns up to limit documents with IDs that begin with prefix and sort
// after startAfter, in ID order.
func (s *Store) Scan(
	ctx context.Context,
	prefix, startAfter string,
	limit int,
) (docs []document.Document, err error) {
	err = s.db.view(ctx, func(tx *bbolt.Tx) {
		b := s.root(tx).Bucket(docsKey)
		if b == nil {
			return
		}

		p := []byte(prefix)
		seek := p
		if startAfter > prefix {
			seek = []byte(startAfter)
		}

		c := b.Cursor()
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if string(k) <= startAfter {
				continue
			}

			docs = append(docs, unmarshalDocument(string(k), v))

			if limit > 0 && len(docs) == limit {
				return
			}
		}
	})

	return docs, err
}

// Query returns up to limit documents matching q, ordered by etag.
func (s *Store) Query(
	ctx context.Context,
	q document.Query,
	limit int,
) (docs []document.Document, err error) {
	i, err := s.index(q.Index)
	if err != nil {
		return nil, err
	}

	err = s.db.view(ctx, func(tx *bbolt.Tx) {
		root := s.root(tx)

		b := root.Bucket(etagsKey)
		if b == nil {
			return
		}

		c := b.Cursor()
		for k, id := c.First(); k != nil; k, id = c.Next() {
			if !i.Covers(string(id)) {
				continue
			}

			doc, ok := loadDocument(root, string(id))
			if !ok {
				continue
			}

			match, err := q.Match(i, doc)
			bboltx.Must(err)

			if !match {
				continue
			}

			docs = append(docs, doc)

			if limit > 0 && len(docs) == limit {
				return
			}
		}
	})

	return docs, err
}

// Update executes fn within an atomic write transaction.
//
// A BoltDB file has a single replica, so every transaction is cluster-wide. It
// returns document.ErrInsufficientReplicas if the write concern requires any
// other replicas.
func (s *Store) Update(
	ctx context.Context,
	fn func(document.Tx) error,
	options ...document.WriteOption,
) error {
	if wc := document.ResolveWriteConcern(options...); wc.Replicas > 0 {
		return document.ErrInsufficientReplicas
	}

	return s.db.update(ctx, func(tx *bbolt.Tx) {
		t := &transaction{
			root:    s.root(tx),
			replica: s.replica,
		}

		bboltx.Must(fn(t))

		if len(t.changed) > 0 {
			changed := t.changed
			tx.OnCommit(func() {
				s.notifier.Notify(changed...)
			})
		}
	})
}

// WatchPrefix returns a watch that is signaled whenever a document with an ID
// beginning with prefix changes.
func (s *Store) WatchPrefix(prefix string) *document.Watch {
	return s.notifier.Watch(func(id string) bool {
		return strings.HasPrefix(id, prefix)
	})
}

// WatchIndex returns a watch that is signaled whenever a document covered by
// the named index changes.
func (s *Store) WatchIndex(name string) (*document.Watch, error) {
	i, err := s.index(name)
	if err != nil {
		return nil, err
	}

	return s.notifier.Watch(i.Covers), nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.notifier.Close()
	return s.db.Close()
}

// root returns the database's top-level bucket.
func (s *Store) root(tx *bbolt.Tx) *bbolt.Bucket {
	b := tx.Bucket(s.name)
	if b == nil {
		bboltx.Must(document.ErrDatabaseNotFound)
	}

	return b
}

func (s *Store) index(name string) (document.Index, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	i, ok := s.indexes[name]
	if !ok {
		return document.Index{}, document.ErrIndexNotFound
	}

	return i, nil
}
