package memorydoc

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/offset"
)

// Cluster is an in-memory, replicated document store.
//
// Each node holds a full replica of every database. Writes are accepted by
// the node a Store is bound to and replicated to the other nodes, either
// immediately or, when lag is enabled, only when Sync() is called or a write
// concern demands it.
//
// The cluster also tracks the state agreed by all nodes, which is used to
// evaluate cluster-wide transactions.
type Cluster struct {
	m         sync.Mutex
	nodes     []*node
	databases map[string]*clusterDatabase
	lag       bool
	handles   map[*Store]struct{}
}

// clusterDatabase is the cluster-wide state of a single database.
type clusterDatabase struct {
	created    bool
	startingUp int
	indexing   int
	indexes    map[string]document.Index
	agreed     map[string]document.Document
}

// change is a write that is waiting to be replicated to a node.
type change struct {
	origin   *node
	database string
	doc      document.Document
	deleted  bool
}

// NewCluster returns a cluster with nodes using the given replica
// identifiers.
func NewCluster(replicas ...string) *Cluster {
	if len(replicas) == 0 {
		panic("at least one replica must be provided")
	}

	c := &Cluster{
		databases: map[string]*clusterDatabase{},
		handles:   map[*Store]struct{}{},
	}

	for _, id := range replicas {
		if id == "" || strings.ContainsAny(id, ":,") {
			panic("replica ID must be non-empty and must not contain ':' or ','")
		}

		if c.node(id) != nil {
			panic(fmt.Sprintf("duplicate replica ID %q", id))
		}

		c.nodes = append(c.nodes, &node{
			id:        id,
			databases: map[string]*nodeDatabase{},
		})
	}

	return c
}

// Open returns a store for the named database, bound to the given replica.
func (c *Cluster) Open(replica, database string) *Store {
	if database == "" {
		panic("database name must not be empty")
	}

	c.m.Lock()
	defer c.m.Unlock()

	n := c.node(replica)
	if n == nil {
		panic(fmt.Sprintf("unknown replica %q", replica))
	}

	s := &Store{
		reader: reader{
			cluster:  c,
			node:     n,
			database: database,
		},
	}

	c.handles[s] = struct{}{}

	return s
}

// SetLag enables or disables replication lag.
//
// While lag is enabled writes are only applied to the node that accepted them.
// Disabling lag does not apply pending writes; use Sync().
func (c *Cluster) SetLag(enabled bool) {
	c.m.Lock()
	defer c.m.Unlock()

	c.lag = enabled
}

// Sync applies all pending writes to every node.
func (c *Cluster) Sync() {
	c.m.Lock()
	notes := c.flush(c.nodes...)
	c.m.Unlock()

	c.notify(notes)
}

// StartingUp causes the next n calls to DatabaseExists() or CreateDatabase()
// for the named database to fail with document.ErrDatabaseUnavailable.
func (c *Cluster) StartingUp(database string, n int) {
	c.m.Lock()
	defer c.m.Unlock()

	c.database(database, true).startingUp = n
}

// IndexesStartingUp causes the next n calls to CreateIndex() for the named
// database to fail with document.ErrDatabaseUnavailable.
func (c *Cluster) IndexesStartingUp(database string, n int) {
	c.m.Lock()
	defer c.m.Unlock()

	c.database(database, true).indexing = n
}

// node returns the node with the given ID, or nil if there is no such node.
func (c *Cluster) node(id string) *node {
	for _, n := range c.nodes {
		if n.id == id {
			return n
		}
	}

	return nil
}

// database returns the cluster-wide state of the named database.
func (c *Cluster) database(name string, create bool) *clusterDatabase {
	db, ok := c.databases[name]
	if !ok && create {
		db = &clusterDatabase{
			indexes: map[string]document.Index{},
			agreed:  map[string]document.Document{},
		}
		c.databases[name] = db
	}

	return db
}

// commit applies a set of staged writes that were accepted by origin.
//
// It returns the notifications that must be dispatched once c.m has been
// released.
func (c *Cluster) commit(
	origin *node,
	database string,
	writes []write,
	wc document.WriteConcern,
) []notification {
	cdb := c.databases[database]
	odb := origin.database(database)

	var notes []notification

	for _, w := range writes {
		ch := change{
			origin:   origin,
			database: database,
			deleted:  w.deleted,
		}

		if w.deleted {
			ch.doc = document.Document{ID: w.id}
			delete(cdb.agreed, w.id)
		} else {
			odb.etag++

			cv := offset.Vector{origin.id: odb.etag}
			if prev, ok := cdb.agreed[w.id]; ok {
				cv = offset.Merge(prev.ChangeVector, cv)
			}

			ch.doc = document.Document{
				ID:           w.id,
				Body:         cloneBytes(w.body),
				ChangeVector: cv,
				Etag:         odb.etag,
			}

			cdb.agreed[w.id] = ch.doc
		}

		origin.apply(ch)
		notes = append(notes, notification{origin, database, w.id})

		for _, n := range c.nodes {
			if n != origin {
				n.pending = append(n.pending, ch)
			}
		}
	}

	if c.lag {
		notes = append(notes, c.flush(c.others(origin, wc.Replicas)...)...)
	} else {
		notes = append(notes, c.flush(c.nodes...)...)
	}

	return notes
}

// others returns up to n nodes other than origin.
func (c *Cluster) others(origin *node, n int) []*node {
	var nodes []*node

	for _, x := range c.nodes {
		if len(nodes) == n {
			break
		}

		if x != origin {
			nodes = append(nodes, x)
		}
	}

	return nodes
}

// flush applies all pending writes to the given nodes.
func (c *Cluster) flush(nodes ...*node) []notification {
	var notes []notification

	for _, n := range nodes {
		for _, ch := range n.pending {
			n.apply(ch)
			notes = append(notes, notification{n, ch.database, ch.doc.ID})
		}

		n.pending = nil
	}

	return notes
}

// notification is a change that must be reported to watches on a specific
// node.
type notification struct {
	node     *node
	database string
	id       string
}

// notify dispatches notifications to the watches of all open stores.
func (c *Cluster) notify(notes []notification) {
	if len(notes) == 0 {
		return
	}

	c.m.Lock()
	handles := make([]*Store, 0, len(c.handles))
	for s := range c.handles {
		handles = append(handles, s)
	}
	c.m.Unlock()

	for _, s := range handles {
		var ids []string

		for _, n := range notes {
			if n.node == s.node && n.database == s.database {
				ids = append(ids, n.id)
			}
		}

		if len(ids) > 0 {
			s.notifier.Notify(ids...)
		}
	}
}

// node is a single member of the cluster.
type node struct {
	id        string
	databases map[string]*nodeDatabase
	pending   []change
}

// nodeDatabase is a single node's replica of a database.
type nodeDatabase struct {
	etag uint64
	docs map[string]document.Document
}

func (n *node) database(name string) *nodeDatabase {
	db, ok := n.databases[name]
	if !ok {
		db = &nodeDatabase{
			docs: map[string]document.Document{},
		}
		n.databases[name] = db
	}

	return db
}

// apply applies a change to the node's replica.
//
// Documents replicated from another node are assigned a new node-local etag.
func (n *node) apply(ch change) {
	db := n.database(ch.database)

	if ch.deleted {
		delete(db.docs, ch.doc.ID)
		return
	}

	doc := ch.doc
	if ch.origin != n {
		if prev, ok := db.docs[doc.ID]; ok && prev.ChangeVector.Covers(doc.ChangeVector) {
			// The node already has this revision, or a later one.
			return
		}

		db.etag++
		doc.Etag = db.etag
	}

	db.docs[doc.ID] = doc
}

// sorted returns the node's documents in the given database ordered by etag.
func (db *nodeDatabase) sorted() []document.Document {
	docs := make([]document.Document, 0, len(db.docs))
	for _, doc := range db.docs {
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Etag < docs[j].Etag
	})

	return docs
}
