package storetest

import (
	"context"
	"time"

	"github.com/dogmatiq/docjournal/document"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// Out is a container for values that are provided by the store-specific
// "before" function.
type Out struct {
	// Store is the store under test. Its database must not yet exist.
	Store document.Store

	// TestTimeout is the maximum duration allowed for each test.
	TestTimeout time.Duration

	// AssumeBlockingDuration specifies how long the tests should wait before
	// assuming that a watch is not going to be signaled.
	AssumeBlockingDuration time.Duration
}

const (
	// DefaultTestTimeout is the default test timeout.
	DefaultTestTimeout = 3 * time.Second

	// DefaultAssumeBlockingDuration is the default "assumed blocking duration".
	DefaultAssumeBlockingDuration = 150 * time.Millisecond
)

// Declare declares generic behavioral tests for a specific document store
// implementation.
func Declare(
	before func(context.Context) Out,
	after func(),
) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		out    Out
	)

	ginkgo.Context("standard document store test suite", func() {
		ginkgo.BeforeEach(func() {
			setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelSetup()

			out = before(setupCtx)

			if out.TestTimeout <= 0 {
				out.TestTimeout = DefaultTestTimeout
			}

			if out.AssumeBlockingDuration <= 0 {
				out.AssumeBlockingDuration = DefaultAssumeBlockingDuration
			}

			ctx, cancel = context.WithTimeout(context.Background(), out.TestTimeout)
		})

		ginkgo.AfterEach(func() {
			if after != nil {
				after()
			}

			cancel()
		})

		declareDatabaseTests(&ctx, &out)
		declareTransactionTests(&ctx, &out)
		declareScanTests(&ctx, &out)
		declareQueryTests(&ctx, &out)
		declareWatchTests(&ctx, &out)
	})
}

// createDatabase creates the database used by the tests.
func createDatabase(ctx context.Context, s document.Store) {
	err := s.CreateDatabase(ctx)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
}

// put writes documents in a single transaction.
func put(ctx context.Context, s document.Store, ids ...string) {
	err := s.Update(ctx, func(tx document.Tx) error {
		for _, id := range ids {
			if err := tx.Put(id, []byte("<body of "+id+">")); err != nil {
				return err
			}
		}
		return nil
	})
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
}

// ids returns the IDs of the given documents.
func ids(docs []document.Document) []string {
	var r []string
	for _, d := range docs {
		r = append(r, d.ID)
	}
	return r
}
