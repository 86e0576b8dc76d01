package docjournal

import (
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/dogmatiq/docjournal/journal"
	"github.com/dogmatiq/docjournal/query"
	"github.com/dogmatiq/docjournal/record"
	"github.com/dogmatiq/docjournal/snapshot"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/dogmatiq/marshalkit"
	"github.com/dogmatiq/marshalkit/codec"
	"github.com/dogmatiq/marshalkit/codec/json"
)

// EngineOption configures the behavior of an engine.
type EngineOption func(*engineOptions)

var (
	// DefaultBackoffStrategy is the default strategy used to delay retries of
	// storage initialization.
	//
	// It is overridden by the WithBackoffStrategy() option.
	DefaultBackoffStrategy backoff.Strategy = backoff.WithTransforms(
		backoff.Exponential(100*time.Millisecond),
		linger.FullJitter,
		linger.Limiter(0, 10*time.Second),
	)

	// DefaultReadTimeout is the default timeout applied to read operations.
	//
	// It is overridden by the WithReadTimeout() option.
	DefaultReadTimeout = journal.DefaultReadTimeout

	// DefaultWriteTimeout is the default timeout applied to write operations.
	//
	// It is overridden by the WithWriteTimeout() option.
	DefaultWriteTimeout = journal.DefaultWriteTimeout

	// DefaultRefreshInterval is the default interval at which live all-events
	// queries poll for new events.
	//
	// It is overridden by the WithRefreshInterval() option.
	DefaultRefreshInterval = query.DefaultRefreshInterval

	// DefaultMaxBufferSize is the default number of results buffered by each
	// query stream.
	//
	// It is overridden by the WithMaxBufferSize() option.
	DefaultMaxBufferSize = query.DefaultMaxBufferSize

	// DefaultConcurrencyLimit is the default number of entities that are
	// committed concurrently by a single call to Journal.Append().
	//
	// It is overridden by the WithConcurrencyLimit() option.
	DefaultConcurrencyLimit = runtime.GOMAXPROCS(0) * 2

	// DefaultStashSize is the default number of operations that may wait for
	// the engine to become ready.
	//
	// It is overridden by the WithStashSize() option.
	DefaultStashSize = 1000

	// DefaultLogger is the default target for log messages produced by the
	// engine.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// WithEntityNamespace returns an engine option that sets the namespace used to
// partition the engine's records from those of other journals in the same
// database.
//
// If this option is omitted or ns is empty, record.DefaultNamespace is used.
func WithEntityNamespace(ns string) EngineOption {
	if strings.Contains(ns, "/") {
		panic("namespace must not contain '/'")
	}

	return func(opts *engineOptions) {
		opts.Keys = record.NewKeys(ns)
	}
}

// WithAutoInitializeStorage returns an engine option that controls whether the
// engine creates the database if it does not already exist.
//
// If this option is omitted, the database is created automatically.
func WithAutoInitializeStorage(enabled bool) EngineOption {
	return func(opts *engineOptions) {
		opts.AutoInitializeStorage = &enabled
	}
}

// WithReadTimeout returns an engine option that sets the timeout applied to
// read operations.
//
// If this option is omitted or d is zero, DefaultReadTimeout is used.
func WithReadTimeout(d time.Duration) EngineOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *engineOptions) {
		opts.ReadTimeout = d
	}
}

// WithWriteTimeout returns an engine option that sets the timeout applied to
// write operations.
//
// If this option is omitted or d is zero, DefaultWriteTimeout is used.
func WithWriteTimeout(d time.Duration) EngineOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *engineOptions) {
		opts.WriteTimeout = d
	}
}

// WithConsistencyLevel returns an engine option that sets the durability
// guarantee required when saving snapshots.
//
// If this option is omitted, snapshot.Single is used.
func WithConsistencyLevel(c snapshot.ConsistencyLevel) EngineOption {
	return func(opts *engineOptions) {
		opts.ConsistencyLevel = c
	}
}

// WithRefreshInterval returns an engine option that sets the interval at which
// live all-events queries poll for new events.
//
// If this option is omitted or d is zero, DefaultRefreshInterval is used.
func WithRefreshInterval(d time.Duration) EngineOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *engineOptions) {
		opts.RefreshInterval = d
	}
}

// WithMaxBufferSize returns an engine option that sets the number of results
// buffered by each query stream.
//
// If this option is omitted or n is zero, DefaultMaxBufferSize is used.
func WithMaxBufferSize(n int) EngineOption {
	if n < 0 {
		panic("buffer size must not be negative")
	}

	return func(opts *engineOptions) {
		opts.MaxBufferSize = n
	}
}

// WithReadHighestFromAllReplicas returns an engine option that controls whether
// reading an entity's highest sequence number consults every replica.
func WithReadHighestFromAllReplicas(enabled bool) EngineOption {
	return func(opts *engineOptions) {
		opts.ReadHighestFromAllReplicas = enabled
	}
}

// WithConcurrencyLimit returns an engine option that limits the number of
// entities committed concurrently by a single call to Journal.Append().
//
// If this option is omitted or n is zero, DefaultConcurrencyLimit is used.
func WithConcurrencyLimit(n int) EngineOption {
	if n < 0 {
		panic("concurrency limit must not be negative")
	}

	return func(opts *engineOptions) {
		opts.ConcurrencyLimit = n
	}
}

// WithStashSize returns an engine option that sets the number of operations
// that may wait for the engine to become ready. Operations beyond this limit
// fail with ErrStashFull.
//
// If this option is omitted or n is zero, DefaultStashSize is used.
func WithStashSize(n int) EngineOption {
	if n < 0 {
		panic("stash size must not be negative")
	}

	return func(opts *engineOptions) {
		opts.StashSize = n
	}
}

// WithBackoffStrategy returns an engine option that sets the strategy used to
// delay retries of storage initialization.
//
// If this option is omitted or s is nil, DefaultBackoffStrategy is used.
func WithBackoffStrategy(s backoff.Strategy) EngineOption {
	return func(opts *engineOptions) {
		opts.BackoffStrategy = s
	}
}

// NewDefaultMarshaler returns a JSON marshaler that supports the given event
// and snapshot types.
//
// It is used if the WithMarshaler() option is omitted.
func NewDefaultMarshaler(types ...reflect.Type) marshalkit.Marshaler {
	m, err := codec.NewMarshaler(
		types,
		[]codec.Codec{
			&json.Codec{},
		},
	)
	if err != nil {
		panic(err)
	}

	return m
}

// WithMarshaler returns an engine option that sets the marshaler used to
// marshal and unmarshal events and snapshots.
//
// If this option is omitted or m is nil, NewDefaultMarshaler() is called to
// obtain the default marshaler.
func WithMarshaler(m marshalkit.Marshaler) EngineOption {
	return func(opts *engineOptions) {
		opts.Marshaler = m
	}
}

// WithLogger returns an engine option that sets the target for log messages
// produced by the engine.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) EngineOption {
	return func(opts *engineOptions) {
		opts.Logger = l
	}
}

// engineOptions is a container for a fully-resolved set of engine options.
type engineOptions struct {
	Keys                       record.Keys
	AutoInitializeStorage      *bool
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	ConsistencyLevel           snapshot.ConsistencyLevel
	RefreshInterval            time.Duration
	MaxBufferSize              int
	ReadHighestFromAllReplicas bool
	ConcurrencyLimit           int
	StashSize                  int
	BackoffStrategy            backoff.Strategy
	Marshaler                  marshalkit.Marshaler
	Logger                     logging.Logger
}

// resolveEngineOptions returns a fully-populated set of engine options built
// from the given set of option functions.
func resolveEngineOptions(options ...EngineOption) *engineOptions {
	opts := &engineOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Keys.Namespace == "" {
		opts.Keys = record.NewKeys("")
	}

	if opts.AutoInitializeStorage == nil {
		enabled := true
		opts.AutoInitializeStorage = &enabled
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}

	if opts.MaxBufferSize == 0 {
		opts.MaxBufferSize = DefaultMaxBufferSize
	}

	if opts.ConcurrencyLimit == 0 {
		opts.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if opts.StashSize == 0 {
		opts.StashSize = DefaultStashSize
	}

	if opts.BackoffStrategy == nil {
		opts.BackoffStrategy = DefaultBackoffStrategy
	}

	if opts.Marshaler == nil {
		opts.Marshaler = NewDefaultMarshaler()
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	return opts
}
