package journal

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/internal/x/syncx"
	"github.com/dogmatiq/docjournal/record"
	"github.com/dogmatiq/docjournal/semaphore"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/marshalkit"
)

var (
	// DefaultReadTimeout is the default timeout applied to read operations.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default timeout applied to write operations.
	DefaultWriteTimeout = 15 * time.Second
)

// Journal is an append-only log of events for independently addressed
// entities, stored within a document store.
type Journal struct {
	// Store is the document store that contains the journal.
	Store document.Store

	// Marshaler is used to marshal and unmarshal events.
	Marshaler marshalkit.ValueMarshaler

	// Keys is the key scheme used to identify records. If its namespace is
	// empty, record.DefaultNamespace is used.
	Keys record.Keys

	// WriterID identifies this journal instance within the events it writes,
	// unless the event's envelope already carries a writer ID.
	WriterID string

	// ReadTimeout is the timeout applied to read operations. If it is zero,
	// DefaultReadTimeout is used.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout applied to write operations. If it is zero,
	// DefaultWriteTimeout is used.
	WriteTimeout time.Duration

	// ReadHighestFromAllReplicas, if true, causes ReadHighestSequenceNr() to
	// consult every replica of the database and return the largest value.
	ReadHighestFromAllReplicas bool

	// Semaphore limits the number of entities committed concurrently by a
	// single call to Append().
	Semaphore semaphore.Semaphore

	// Logger is the target for log messages from the journal.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	locks syncx.RWMutexNamespace
}

// AtomicWrite is a set of events for a single entity that must be committed
// atomically.
type AtomicWrite struct {
	EntityID string
	Events   []envelope.Envelope
}

func (j *Journal) keys() record.Keys {
	if j.Keys.Namespace == "" {
		return record.NewKeys("")
	}

	return j.Keys
}

func (j *Journal) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return linger.ContextWithTimeout(ctx, j.ReadTimeout, DefaultReadTimeout)
}

func (j *Journal) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return linger.ContextWithTimeout(ctx, j.WriteTimeout, DefaultWriteTimeout)
}

// loadMetadata loads an entity's metadata record from r.
func (j *Journal) loadMetadata(
	ctx context.Context,
	r document.Reader,
	entityID string,
) (record.Metadata, bool, error) {
	doc, ok, err := r.Load(ctx, j.keys().MetadataID(entityID))
	if !ok || err != nil {
		return record.Metadata{}, false, err
	}

	md, err := record.Unmarshal[record.Metadata](doc)
	return md, true, err
}
