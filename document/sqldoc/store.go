package sqldoc

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/internal/x/sqlx"
	"github.com/dogmatiq/docjournal/internal/x/syncx"
)

// DefaultReplicaID is the replica identifier used when none is specified.
const DefaultReplicaID = "A"

// Store is an implementation of document.Store backed by an SQLite database.
//
// An SQL database can hold many document databases, each identified by name.
// There is only ever one replica. The schema must be created with
// CreateSchema() before the store is used.
//
// Watches are only signaled by changes made through a store within the same
// process.
type Store struct {
	db       *sql.DB
	owned    bool
	m        syncx.RWMutex
	name     string
	replica  string
	notifier document.Notifier

	im      sync.RWMutex
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
func New(db *sql.DB, name string, options ...Option) *Store {
	if name == "" {
		panic("database name must not be empty")
	}

	s := &Store{
		db:      db,
		name:    name,
		replica: DefaultReplicaID,
		indexes: map[string]document.Index{},
	}

	for _, o := range options {
		o(s)
	}

	return s
}

// Open returns a store for the named database within the SQL database opened
// with the given driver and data source name. The schema is created if
// necessary.
//
// The SQL database is closed when the store is closed.
func Open(
	ctx context.Context,
	driver, dsn string,
	name string,
	options ...Option,
) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := New(db, name, options...)
	s.owned = true

	return s, nil
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
	err = s.view(ctx, func(ctx context.Context) {
		exists = databaseExists(ctx, s.db, s.name)
	})

	return exists, err
}

// CreateDatabase creates the database.
func (s *Store) CreateDatabase(ctx context.Context) error {
	return s.update(ctx, func(ctx context.Context, tx *sql.Tx) {
		n := sqlx.ExecRows(
			ctx,
			tx,
			`INSERT INTO document_database (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING`,
			s.name,
		)

		if n == 0 {
			sqlx.Must(document.ErrDatabaseExists)
		}
	})
}

// CreateIndex defines an index.
//
// Index definitions are held in memory; the index name is recorded in the
// database so that it is visible to other processes sharing it.
func (s *Store) CreateIndex(ctx context.Context, i document.Index) error {
	if i.Name == "" {
		panic("index name must not be empty")
	}

	err := s.update(ctx, func(ctx context.Context, tx *sql.Tx) {
		s.mustExist(ctx, tx)

		sqlx.Exec(
			ctx,
			tx,
			`INSERT INTO document_index (database, name, collection) VALUES ($1, $2, $3)
			ON CONFLICT (database, name) DO UPDATE SET collection = excluded.collection`,
			s.name,
			i.Name,
			i.Collection,
		)
	})
	if err != nil {
		return err
	}

	s.im.Lock()
	s.indexes[i.Name] = i
	s.im.Unlock()

	return nil
}

// Load returns the document with the given ID.
func (s *Store) Load(ctx context.Context, id string) (doc document.Document, ok bool, err error) {
	err = s.view(ctx, func(ctx context.Context) {
		s.mustExist(ctx, s.db)
		doc, ok = loadDocument(ctx, s.db, s.name, id)
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
	err = s.view(ctx, func(ctx context.Context) {
		s.mustExist(ctx, s.db)

		rows := sqlx.Query(
			ctx,
			s.db,
			`SELECT id, body, change_vector, etag
			FROM document
			WHERE database = $1
			AND id >= $2
			AND id > $3
			AND substr(id, 1, length($2)) = $2
			ORDER BY id
			LIMIT $4`,
			s.name,
			prefix,
			startAfter,
			sqlLimit(limit),
		)
		defer rows.Close()

		for rows.Next() {
			docs = append(docs, scanDocument(rows))
		}

		sqlx.Must(rows.Err())
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

	err = s.view(ctx, func(ctx context.Context) {
		s.mustExist(ctx, s.db)

		rows := sqlx.Query(
			ctx,
			s.db,
			`SELECT id, body, change_vector, etag
			FROM document
			WHERE database = $1
			AND substr(id, 1, length($2)) = $2
			ORDER BY etag`,
			s.name,
			i.Collection,
		)
		defer rows.Close()

		for rows.Next() {
			doc := scanDocument(rows)

			match, err := q.Match(i, doc)
			sqlx.Must(err)

			if !match {
				continue
			}

			docs = append(docs, doc)

			if limit > 0 && len(docs) == limit {
				return
			}
		}

		sqlx.Must(rows.Err())
	})

	return docs, err
}

// Update executes fn within an atomic write transaction.
//
// The store has a single replica, so every transaction is cluster-wide. It
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

	var changed []string

	err := s.update(ctx, func(ctx context.Context, tx *sql.Tx) {
		s.mustExist(ctx, tx)

		t := &transaction{
			ctx:      ctx,
			tx:       tx,
			database: s.name,
			replica:  s.replica,
		}

		sqlx.Must(fn(t))
		changed = t.changed
	})
	if err != nil {
		return err
	}

	if len(changed) > 0 {
		s.notifier.Notify(changed...)
	}

	return nil
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

	if s.owned {
		return s.db.Close()
	}

	return nil
}

// view calls fn while holding a shared lock on the store.
func (s *Store) view(ctx context.Context, fn func(context.Context)) (err error) {
	if err := s.m.RLock(ctx); err != nil {
		return err
	}
	defer s.m.RUnlock()

	defer sqlx.Recover(&err)
	fn(ctx)

	return nil
}

// update calls fn within an SQL transaction while holding an exclusive lock
// on the store. The transaction is committed if fn returns without panicking.
func (s *Store) update(ctx context.Context, fn func(context.Context, *sql.Tx)) (err error) {
	if err := s.m.Lock(ctx); err != nil {
		return err
	}
	defer s.m.Unlock()

	defer sqlx.Recover(&err)

	tx := sqlx.Begin(ctx, s.db)
	defer tx.Rollback() // nolint:errcheck

	fn(ctx, tx)
	sqlx.Commit(tx)

	return nil
}

// mustExist panics with document.ErrDatabaseNotFound if the database has not
// been created.
func (s *Store) mustExist(ctx context.Context, db sqlx.DB) {
	if !databaseExists(ctx, db, s.name) {
		sqlx.Must(document.ErrDatabaseNotFound)
	}
}

func (s *Store) index(name string) (document.Index, error) {
	s.im.RLock()
	defer s.im.RUnlock()

	i, ok := s.indexes[name]
	if !ok {
		return document.Index{}, document.ErrIndexNotFound
	}

	return i, nil
}

func databaseExists(ctx context.Context, db sqlx.DB, name string) bool {
	return sqlx.QueryBool(
		ctx,
		db,
		`SELECT EXISTS (SELECT * FROM document_database WHERE name = $1)`,
		name,
	)
}

// sqlLimit converts a document store limit to an SQLite LIMIT value, where a
// negative value means there is no limit.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}

	return limit
}
