package docjournal

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/document/boltdoc"
	"github.com/dogmatiq/docjournal/document/memorydoc"
	"github.com/dogmatiq/docjournal/record"
)

// DefaultDatabase is the name of the database used when an endpoint does not
// specify one.
const DefaultDatabase = record.DefaultNamespace

// OpenStore connects to the document store described by cfg.ServerEndpoints.
//
// Only the first endpoint is used. The supported forms are:
//
//	bolt:///path/to/file.boltdb[?database=name][&replica=id]
//	memory://cluster[?database=name]
//	sqlite:///path/to/file.db[?database=name][&replica=id]
//
// The sqlite scheme is only available in builds with cgo enabled.
//
// Memory stores opened with the same cluster name share their data for the
// lifetime of the process. Each memory cluster has a single replica.
func OpenStore(ctx context.Context, cfg Config) (document.Store, error) {
	if len(cfg.ServerEndpoints) == 0 {
		return nil, fmt.Errorf("no server endpoints are configured")
	}

	u, err := url.Parse(cfg.ServerEndpoints[0])
	if err != nil {
		return nil, fmt.Errorf("invalid server endpoint: %w", err)
	}

	q := u.Query()

	database := q.Get("database")
	if database == "" {
		database = DefaultDatabase
	}

	replica := q.Get("replica")

	switch u.Scheme {
	case "bolt":
		if u.Path == "" {
			return nil, fmt.Errorf("invalid server endpoint %q: the path is empty", u)
		}

		var options []boltdoc.Option
		if replica != "" {
			options = append(options, boltdoc.WithReplicaID(replica))
		}

		return boltdoc.Open(ctx, u.Path, database, options...)

	case "memory":
		return memoryCluster(u.Host).Open(memoryReplicaID, database), nil

	default:
		if open, ok := openers[u.Scheme]; ok {
			return open(ctx, u, database, replica)
		}

		return nil, fmt.Errorf("invalid server endpoint %q: unsupported scheme", u)
	}
}

// opener opens a store for an endpoint with a scheme that is only supported
// by some builds.
type opener func(ctx context.Context, u *url.URL, database, replica string) (document.Store, error)

// openers is a map of URL scheme to the function that opens stores for that
// scheme.
var openers = map[string]opener{}

// memoryReplicaID is the ID of the only replica in each memory cluster.
const memoryReplicaID = "A"

var memoryClusters struct {
	m        sync.Mutex
	clusters map[string]*memorydoc.Cluster
}

// memoryCluster returns the process-wide memory cluster with the given name,
// creating it if necessary.
func memoryCluster(name string) *memorydoc.Cluster {
	memoryClusters.m.Lock()
	defer memoryClusters.m.Unlock()

	c, ok := memoryClusters.clusters[name]
	if !ok {
		if memoryClusters.clusters == nil {
			memoryClusters.clusters = map[string]*memorydoc.Cluster{}
		}

		c = memorydoc.NewCluster(memoryReplicaID)
		memoryClusters.clusters[name] = c
	}

	return c
}
