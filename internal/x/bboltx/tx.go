package bboltx

import (
	"go.etcd.io/bbolt"
)

// View executes fn within a read-only transaction.
//
// Panics raised via Must() within fn are returned as errors.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.View(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}

// Update executes fn within a read-write transaction.
//
// Panics raised via Must() within fn are returned as errors, and cause the
// transaction to be rolled back.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.Update(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}
