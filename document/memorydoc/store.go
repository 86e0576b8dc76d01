package memorydoc

import (
	"context"
	"sort"
	"strings"

	"github.com/dogmatiq/docjournal/document"
)

// Store is an implementation of document.Store that is bound to a single node
// of an in-memory cluster.
type Store struct {
	reader

	notifier document.Notifier
	closed   bool
}

var _ document.Store = (*Store)(nil)

// Replicas returns a reader for every node in the cluster.
func (s *Store) Replicas() []document.Reader {
	s.cluster.m.Lock()
	defer s.cluster.m.Unlock()

	readers := make([]document.Reader, 0, len(s.cluster.nodes))
	for _, n := range s.cluster.nodes {
		readers = append(readers, &reader{
			cluster:  s.cluster,
			node:     n,
			database: s.database,
		})
	}

	return readers
}

// DatabaseExists returns true if the database has been created.
func (s *Store) DatabaseExists(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	s.cluster.m.Lock()
	defer s.cluster.m.Unlock()

	if s.closed {
		return false, document.ErrClosed
	}

	cdb := s.cluster.database(s.database, false)
	if cdb == nil {
		return false, nil
	}

	if cdb.startingUp > 0 {
		cdb.startingUp--
		return false, document.ErrDatabaseUnavailable
	}

	return cdb.created, nil
}

// CreateDatabase creates the database on all nodes.
func (s *Store) CreateDatabase(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.cluster.m.Lock()
	defer s.cluster.m.Unlock()

	if s.closed {
		return document.ErrClosed
	}

	cdb := s.cluster.database(s.database, true)

	if cdb.startingUp > 0 {
		cdb.startingUp--
		return document.ErrDatabaseUnavailable
	}

	if cdb.created {
		return document.ErrDatabaseExists
	}

	cdb.created = true

	return nil
}

// CreateIndex defines an index. Index definitions are shared by all nodes.
func (s *Store) CreateIndex(ctx context.Context, i document.Index) error {
	if i.Name == "" {
		panic("index name must not be empty")
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.cluster.m.Lock()
	defer s.cluster.m.Unlock()

	cdb, err := s.open()
	if err != nil {
		return err
	}

	if cdb.indexing > 0 {
		cdb.indexing--
		return document.ErrDatabaseUnavailable
	}

	cdb.indexes[i.Name] = i

	return nil
}

// Update executes fn within an atomic write transaction.
//
// fn is called while the cluster is locked; it must only interact with the
// store via the transaction it is given.
func (s *Store) Update(
	ctx context.Context,
	fn func(document.Tx) error,
	options ...document.WriteOption,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	wc := document.ResolveWriteConcern(options...)

	s.cluster.m.Lock()

	notes, err := s.update(fn, wc)

	s.cluster.m.Unlock()

	s.cluster.notify(notes)

	return err
}

func (s *Store) update(
	fn func(document.Tx) error,
	wc document.WriteConcern,
) ([]notification, error) {
	cdb, err := s.open()
	if err != nil {
		return nil, err
	}

	if wc.Replicas > len(s.cluster.nodes)-1 {
		return nil, document.ErrInsufficientReplicas
	}

	view := s.node.database(s.database).docs
	if wc.ClusterWide {
		view = cdb.agreed
	}

	tx := &transaction{
		view:   view,
		staged: map[string]write{},
	}

	if err := fn(tx); err != nil {
		return nil, err
	}

	return s.cluster.commit(s.node, s.database, tx.writes, wc), nil
}

// WatchPrefix returns a watch that is signaled whenever a document with an ID
// beginning with prefix changes on this store's node.
func (s *Store) WatchPrefix(prefix string) *document.Watch {
	return s.notifier.Watch(func(id string) bool {
		return strings.HasPrefix(id, prefix)
	})
}

// WatchIndex returns a watch that is signaled whenever a document covered by
// the named index changes on this store's node.
func (s *Store) WatchIndex(name string) (*document.Watch, error) {
	s.cluster.m.Lock()
	defer s.cluster.m.Unlock()

	cdb, err := s.open()
	if err != nil {
		return nil, err
	}

	i, ok := cdb.indexes[name]
	if !ok {
		return nil, document.ErrIndexNotFound
	}

	return s.notifier.Watch(i.Covers), nil
}

// Close closes the store. Other stores on the same cluster are unaffected.
func (s *Store) Close() error {
	s.cluster.m.Lock()
	s.closed = true
	delete(s.cluster.handles, s)
	s.cluster.m.Unlock()

	s.notifier.Close()

	return nil
}

// open returns the cluster-wide state of the store's database, or an error if
// the store is closed or the database does not exist.
func (s *Store) open() (*clusterDatabase, error) {
	if s.closed {
		return nil, document.ErrClosed
	}

	return s.reader.open()
}

// reader is an implementation of document.Reader for a single node.
type reader struct {
	cluster  *Cluster
	node     *node
	database string
}

func (r *reader) ReplicaID() string {
	return r.node.id
}

func (r *reader) Load(ctx context.Context, id string) (document.Document, bool, error) {
	if ctx.Err() != nil {
		return document.Document{}, false, ctx.Err()
	}

	r.cluster.m.Lock()
	defer r.cluster.m.Unlock()

	if _, err := r.open(); err != nil {
		return document.Document{}, false, err
	}

	doc, ok := r.node.database(r.database).docs[id]
	return cloneDocument(doc), ok, nil
}

func (r *reader) Scan(
	ctx context.Context,
	prefix, startAfter string,
	limit int,
) ([]document.Document, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.cluster.m.Lock()
	defer r.cluster.m.Unlock()

	if _, err := r.open(); err != nil {
		return nil, err
	}

	db := r.node.database(r.database)

	var ids []string
	for id := range db.docs {
		if strings.HasPrefix(id, prefix) && id > startAfter {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	docs := make([]document.Document, len(ids))
	for i, id := range ids {
		docs[i] = cloneDocument(db.docs[id])
	}

	return docs, nil
}

func (r *reader) Query(
	ctx context.Context,
	q document.Query,
	limit int,
) ([]document.Document, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.cluster.m.Lock()
	defer r.cluster.m.Unlock()

	cdb, err := r.open()
	if err != nil {
		return nil, err
	}

	i, ok := cdb.indexes[q.Index]
	if !ok {
		return nil, document.ErrIndexNotFound
	}

	var docs []document.Document

	for _, doc := range r.node.database(r.database).sorted() {
		match, err := q.Match(i, doc)
		if err != nil {
			return nil, err
		}

		if !match {
			continue
		}

		docs = append(docs, cloneDocument(doc))

		if limit > 0 && len(docs) == limit {
			break
		}
	}

	return docs, nil
}

// open returns the cluster-wide state of the reader's database, or an error if
// the database does not exist.
func (r *reader) open() (*clusterDatabase, error) {
	cdb := r.cluster.database(r.database, false)
	if cdb == nil || !cdb.created {
		return nil, document.ErrDatabaseNotFound
	}

	return cdb, nil
}
