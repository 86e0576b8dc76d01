package boltdoc

import (
	"context"

	"github.com/dogmatiq/docjournal/internal/x/bboltx"
	"github.com/dogmatiq/docjournal/internal/x/syncx"
	"go.etcd.io/bbolt"
)

// database wraps a BoltDB database with a context-aware mutex.
//
// BoltDB transactions are not cancelable, so the lock is acquired before the
// underlying transaction is started in order to honor the caller's context
// while waiting for other writers.
type database struct {
	m      syncx.RWMutex
	actual *bbolt.DB
	close  func(*bbolt.DB) error
}

// update executes fn within a write transaction.
func (db *database) update(ctx context.Context, fn func(tx *bbolt.Tx)) error {
	if err := db.m.Lock(ctx); err != nil {
		return err
	}
	defer db.m.Unlock()

	return bboltx.Update(db.actual, fn)
}

// view executes fn within a read-only transaction.
func (db *database) view(ctx context.Context, fn func(tx *bbolt.Tx)) error {
	if err := db.m.RLock(ctx); err != nil {
		return err
	}
	defer db.m.RUnlock()

	return bboltx.View(db.actual, fn)
}

// Close closes the database.
func (db *database) Close() error {
	if db.close == nil {
		return nil
	}

	return db.close(db.actual)
}
