package boltdbtest

import (
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// Open opens a BoltDB database using a temporary file.
//
// The returned function must be used to close the database, instead of
// DB.Close(). It removes the temporary file.
func Open() (*bbolt.DB, func()) {
	dir, err := os.MkdirTemp("", "docjournal-*")
	if err != nil {
		panic(err)
	}

	db, err := bbolt.Open(filepath.Join(dir, "test.boltdb"), 0600, nil)
	if err != nil {
		os.RemoveAll(dir)
		panic(err)
	}

	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

// TempPath returns the path of a BoltDB file within a new temporary directory.
//
// The returned function removes the directory.
func TempPath() (string, func()) {
	dir, err := os.MkdirTemp("", "docjournal-*")
	if err != nil {
		panic(err)
	}

	return filepath.Join(dir, "test.boltdb"), func() {
		os.RemoveAll(dir)
	}
}
