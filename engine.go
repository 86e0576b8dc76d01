package docjournal

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/internal/mlog"
	"github.com/dogmatiq/docjournal/internal/x/loggingx"
	"github.com/dogmatiq/docjournal/journal"
	"github.com/dogmatiq/docjournal/query"
	"github.com/dogmatiq/docjournal/semaphore"
	"github.com/dogmatiq/docjournal/snapshot"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// initializeAttempts is the number of times the engine attempts each storage
// initialization step while the database is unavailable.
const initializeAttempts = 5

// Engine hosts an event journal, snapshot store and query layer within a
// single document store database.
//
// Operations started before the engine is ready wait for Run() to complete.
type Engine struct {
	opts      *engineOptions
	store     document.Store
	gate      *gate
	journal   *journal.Journal
	snapshots *snapshot.Store
	reader    *query.Reader
}

// New returns a new engine that stores its records in the given store.
func New(store document.Store, options ...EngineOption) *Engine {
	opts := resolveEngineOptions(options...)

	logger := func(component string) logging.Logger {
		return loggingx.WithPrefix(
			opts.Logger,
			"@%s | %s | ",
			opts.Keys.Namespace,
			component,
		)
	}

	return &Engine{
		opts:  opts,
		store: store,
		gate:  newGate(opts.StashSize),
		journal: &journal.Journal{
			Store:                      store,
			Marshaler:                  opts.Marshaler,
			Keys:                       opts.Keys,
			WriterID:                   envelope.NewWriterID(),
			ReadTimeout:                opts.ReadTimeout,
			WriteTimeout:               opts.WriteTimeout,
			ReadHighestFromAllReplicas: opts.ReadHighestFromAllReplicas,
			Semaphore:                  semaphore.New(opts.ConcurrencyLimit),
			Logger:                     logger("journal"),
		},
		snapshots: &snapshot.Store{
			Store:        store,
			Marshaler:    opts.Marshaler,
			Keys:         opts.Keys,
			Consistency:  opts.ConsistencyLevel,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			Logger:       logger("snapshots"),
		},
		reader: &query.Reader{
			Store:           store,
			Marshaler:       opts.Marshaler,
			Keys:            opts.Keys,
			RefreshInterval: opts.RefreshInterval,
			MaxBufferSize:   opts.MaxBufferSize,
			Logger:          logger("query"),
		},
	}
}

// Run prepares the engine's storage and then makes the engine ready.
//
// If preparation fails, every operation that is waiting for the engine, and
// every operation started afterwards, fails with the same error.
func (e *Engine) Run(ctx context.Context) error {
	err := e.InitializeStorage(ctx)

	if err == nil {
		err = e.EnsureIndexesReady(ctx)
	}

	if err != nil {
		err = fmt.Errorf("unable to initialize storage: %w", err)
		e.gate.Open(err)
		return err
	}

	mlog.LogSystem(e.opts.Logger, "engine is ready, namespace is %q", e.opts.Keys.Namespace)
	e.gate.Open(nil)

	return nil
}

// InitializeStorage creates the database if it does not already exist.
//
// It does nothing if automatic initialization is disabled. It retries while
// the database is unavailable, up to a fixed number of attempts.
func (e *Engine) InitializeStorage(ctx context.Context) error {
	if !*e.opts.AutoInitializeStorage {
		return nil
	}

	return e.retry(ctx, "initialize storage", e.createDatabase)
}

// retry calls fn until it succeeds, fails with an error other than
// document.ErrDatabaseUnavailable, or has been attempted initializeAttempts
// times.
func (e *Engine) retry(
	ctx context.Context,
	op string,
	fn func(context.Context) error,
) error {
	var n uint

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		n++

		if !errors.Is(err, document.ErrDatabaseUnavailable) || n >= initializeAttempts {
			return err
		}

		delay := e.opts.BackoffStrategy(err, n)
		mlog.LogRetry(e.opts.Logger, op, err, delay)

		if err := linger.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// createDatabase creates the database if it does not already exist.
func (e *Engine) createDatabase(ctx context.Context) error {
	ok, err := e.store.DatabaseExists(ctx)
	if ok || err != nil {
		return err
	}

	err = e.store.CreateDatabase(ctx)
	if errors.Is(err, document.ErrDatabaseExists) {
		return nil
	}

	if err == nil {
		mlog.LogSystem(e.opts.Logger, "database created")
	}

	return err
}

// EnsureIndexesReady creates the indexes used by queries. It is idempotent.
//
// Like InitializeStorage(), it retries while the database is unavailable.
func (e *Engine) EnsureIndexesReady(ctx context.Context) error {
	indexes := query.Indexes(e.opts.Keys)
	errs := make([]error, len(indexes))

	var g errgroup.Group

	for i, index := range indexes {
		i, index := i, index // capture loop variables

		g.Go(func() error {
			err := e.retry(
				ctx,
				fmt.Sprintf("create the %q index", index.Name),
				func(ctx context.Context) error {
					return e.store.CreateIndex(ctx, index)
				},
			)
			if err != nil {
				errs[i] = fmt.Errorf("unable to create the %q index: %w", index.Name, err)
			}
			return nil
		})
	}

	_ = g.Wait()

	return multierr.Combine(errs...)
}

// Journal returns the engine's event journal.
func (e *Engine) Journal() *Journal {
	return &Journal{e.gate, e.journal}
}

// Snapshots returns the engine's snapshot store.
func (e *Engine) Snapshots() *Snapshots {
	return &Snapshots{e.gate, e.snapshots}
}

// Queries returns the engine's query interface.
func (e *Engine) Queries() *Queries {
	return &Queries{e.gate, e.reader}
}
