package journal_test

import (
	"context"
	"math"
	"time"

	"github.com/dogmatiq/docjournal/document/memorydoc"
	"github.com/dogmatiq/docjournal/envelope"
	. "github.com/dogmatiq/docjournal/fixtures"
	. "github.com/dogmatiq/docjournal/journal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// env is the state shared by the tests in this package.
type env struct {
	ctx     context.Context
	cluster *memorydoc.Cluster
	store   *memorydoc.Store
	journal *Journal
}

func setup() *env {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	DeferCleanup(cancel)

	cluster := memorydoc.NewCluster("A", "B")
	store := cluster.Open("A", "<database>")
	DeferCleanup(store.Close)

	err := store.CreateDatabase(ctx)
	Expect(err).ShouldNot(HaveOccurred())

	return &env{
		ctx:     ctx,
		cluster: cluster,
		store:   store,
		journal: &Journal{
			Store:     store,
			Marshaler: Marshaler,
			WriterID:  "<journal>",
		},
	}
}

// journalOn returns a journal that uses the given replica of the test
// database.
func (e *env) journalOn(replica string) *Journal {
	store := e.cluster.Open(replica, "<database>")
	DeferCleanup(store.Close)

	return &Journal{
		Store:     store,
		Marshaler: Marshaler,
	}
}

// append commits events to the journal and expects every write to succeed.
func (e *env) append(j *Journal, writes ...AtomicWrite) {
	results, err := j.Append(e.ctx, writes)
	Expect(err).ShouldNot(HaveOccurred())

	for _, err := range results {
		Expect(err).ShouldNot(HaveOccurred())
	}
}

// write returns an atomic write containing n events starting at from.
func write(entityID string, from int64, n int, tags ...string) AtomicWrite {
	return AtomicWrite{
		EntityID: entityID,
		Events:   NewEnvelopes(entityID, from, n, tags...),
	}
}

// replay returns the sequence numbers of the events delivered by a replay of
// the entire stream.
func (e *env) replay(j *Journal, entityID string, from, to int64) []int64 {
	var seqs []int64

	err := j.Replay(
		e.ctx,
		entityID,
		from,
		to,
		math.MaxInt64,
		func(env envelope.Envelope) error {
			seqs = append(seqs, env.SequenceNr)
			return nil
		},
	)
	Expect(err).ShouldNot(HaveOccurred())

	return seqs
}

func (e *env) highest(j *Journal, entityID string) int64 {
	n, err := j.ReadHighestSequenceNr(e.ctx, entityID)
	Expect(err).ShouldNot(HaveOccurred())
	return n
}
