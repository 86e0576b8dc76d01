package fixtures

import (
	"context"

	"github.com/dogmatiq/docjournal/document"
)

// DocumentStoreStub is a test implementation of the document.Store interface.
type DocumentStoreStub struct {
	document.Store

	LoadFunc           func(context.Context, string) (document.Document, bool, error)
	ScanFunc           func(context.Context, string, string, int) ([]document.Document, error)
	QueryFunc          func(context.Context, document.Query, int) ([]document.Document, error)
	DatabaseExistsFunc func(context.Context) (bool, error)
	CreateDatabaseFunc func(context.Context) error
	CreateIndexFunc    func(context.Context, document.Index) error
	UpdateFunc         func(context.Context, func(document.Tx) error, ...document.WriteOption) error
}

// Load returns the document with the given ID.
func (s *DocumentStoreStub) Load(ctx context.Context, id string) (document.Document, bool, error) {
	if s.LoadFunc != nil {
		return s.LoadFunc(ctx, id)
	}

	if s.Store != nil {
		return s.Store.Load(ctx, id)
	}

	return document.Document{}, false, nil
}

// Scan returns documents with IDs that begin with prefix.
func (s *DocumentStoreStub) Scan(ctx context.Context, prefix, startAfter string, limit int) ([]document.Document, error) {
	if s.ScanFunc != nil {
		return s.ScanFunc(ctx, prefix, startAfter, limit)
	}

	if s.Store != nil {
		return s.Store.Scan(ctx, prefix, startAfter, limit)
	}

	return nil, nil
}

// Query returns documents matching q.
func (s *DocumentStoreStub) Query(ctx context.Context, q document.Query, limit int) ([]document.Document, error) {
	if s.QueryFunc != nil {
		return s.QueryFunc(ctx, q, limit)
	}

	if s.Store != nil {
		return s.Store.Query(ctx, q, limit)
	}

	return nil, nil
}

// DatabaseExists returns true if the database has been created.
func (s *DocumentStoreStub) DatabaseExists(ctx context.Context) (bool, error) {
	if s.DatabaseExistsFunc != nil {
		return s.DatabaseExistsFunc(ctx)
	}

	if s.Store != nil {
		return s.Store.DatabaseExists(ctx)
	}

	return false, nil
}

// CreateDatabase creates the database.
func (s *DocumentStoreStub) CreateDatabase(ctx context.Context) error {
	if s.CreateDatabaseFunc != nil {
		return s.CreateDatabaseFunc(ctx)
	}

	if s.Store != nil {
		return s.Store.CreateDatabase(ctx)
	}

	return nil
}

// CreateIndex defines an index.
func (s *DocumentStoreStub) CreateIndex(ctx context.Context, i document.Index) error {
	if s.CreateIndexFunc != nil {
		return s.CreateIndexFunc(ctx, i)
	}

	if s.Store != nil {
		return s.Store.CreateIndex(ctx, i)
	}

	return nil
}

// Update executes fn within an atomic write transaction.
func (s *DocumentStoreStub) Update(
	ctx context.Context,
	fn func(document.Tx) error,
	options ...document.WriteOption,
) error {
	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, fn, options...)
	}

	if s.Store != nil {
		return s.Store.Update(ctx, fn, options...)
	}

	return nil
}
