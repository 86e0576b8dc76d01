package document

import (
	"github.com/dogmatiq/docjournal/offset"
)

// Index is the definition of a secondary index over a collection of
// documents.
type Index struct {
	// Name uniquely identifies the index.
	Name string

	// Collection is the ID prefix shared by all documents in the index.
	Collection string

	// Terms returns the index terms for a document. It may be nil, in which
	// case documents are indexed without terms.
	Terms func(Document) ([]string, error)
}

// Covers returns true if a document with the given ID belongs to the index.
func (i Index) Covers(id string) bool {
	return len(id) > len(i.Collection) &&
		id[:len(i.Collection)] == i.Collection
}

// Query is a query against an index.
//
// It implements offset.Bounder, so offset.ApplyAsLowerBound() can be used to
// restrict the query to documents that have not already been observed.
type Query struct {
	// Index is the name of the index to query.
	Index string

	// Term, if non-empty, restricts the results to documents indexed under
	// this term.
	Term string

	after       map[string]uint64
	outside     []string
	withOutside bool
	bounded     bool
}

var _ offset.Bounder = (*Query)(nil)

// OrRevisedAfter adds a disjunct matching documents that were revised on the
// given replica after the given etag.
func (q *Query) OrRevisedAfter(replica string, etag uint64) {
	if q.after == nil {
		q.after = map[string]uint64{}
	}

	q.after[replica] = etag
	q.bounded = true
}

// OrRevisedOutside adds a disjunct matching documents that were revised on any
// replica other than those given.
func (q *Query) OrRevisedOutside(replicas []string) {
	q.outside = append(q.outside, replicas...)
	q.withOutside = true
	q.bounded = true
}

// Match returns true if a document in i satisfies the query.
func (q Query) Match(i Index, doc Document) (bool, error) {
	if !i.Covers(doc.ID) {
		return false, nil
	}

	if !q.matchRevision(doc.ChangeVector) {
		return false, nil
	}

	if q.Term == "" {
		return true, nil
	}

	if i.Terms == nil {
		return false, nil
	}

	terms, err := i.Terms(doc)
	if err != nil {
		return false, err
	}

	for _, t := range terms {
		if t == q.Term {
			return true, nil
		}
	}

	return false, nil
}

// matchRevision returns true if cv satisfies any of the revision disjuncts.
func (q Query) matchRevision(cv offset.Vector) bool {
	if !q.bounded {
		return true
	}

	for replica, etag := range cv {
		if after, ok := q.after[replica]; ok {
			if etag > after {
				return true
			}
		} else if q.withOutside && !q.isKnown(replica) {
			return true
		}
	}

	return false
}

func (q Query) isKnown(replica string) bool {
	for _, r := range q.outside {
		if r == replica {
			return true
		}
	}

	return false
}
