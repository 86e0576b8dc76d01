package snapshot_test

import (
	"time"

	. "github.com/dogmatiq/docjournal/snapshot"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Criteria", func() {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	DescribeTable(
		"func Matches()",
		func(c Criteria, md Metadata, expect bool) {
			Expect(c.Matches(md)).To(Equal(expect))
		},
		Entry("latest criteria", LatestCriteria(), Metadata{SequenceNr: 100, Timestamp: t0}, true),
		Entry("below minimum sequence number", Criteria{MinSequenceNr: 5}, Metadata{SequenceNr: 4, Timestamp: t0}, false),
		Entry("at minimum sequence number", Criteria{MinSequenceNr: 5}, Metadata{SequenceNr: 5, Timestamp: t0}, true),
		Entry("at maximum sequence number", Criteria{MaxSequenceNr: 5}, Metadata{SequenceNr: 5, Timestamp: t0}, true),
		Entry("above maximum sequence number", Criteria{MaxSequenceNr: 5}, Metadata{SequenceNr: 6, Timestamp: t0}, false),
		Entry("before minimum timestamp", Criteria{MinTimestamp: t0}, Metadata{SequenceNr: 1, Timestamp: t0.Add(-1)}, false),
		Entry("at maximum timestamp", Criteria{MaxTimestamp: t0}, Metadata{SequenceNr: 1, Timestamp: t0}, true),
		Entry("after maximum timestamp", Criteria{MaxTimestamp: t0}, Metadata{SequenceNr: 1, Timestamp: t0.Add(1)}, false),
	)
})

var _ = Describe("type ConsistencyLevel", func() {
	DescribeTable(
		"func ParseConsistencyLevel()",
		func(s string, expect ConsistencyLevel) {
			l, err := ParseConsistencyLevel(s)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(l).To(Equal(expect))
			Expect(expect.String()).NotTo(BeEmpty())
		},
		Entry("empty", "", Single),
		Entry("single", "single", Single),
		Entry("majority", "Majority", Majority),
		Entry("cluster-wide", "cluster-wide", ClusterWide),
		Entry("clusterwide", "ClusterWide", ClusterWide),
	)

	It("returns an error for an unrecognized level", func() {
		_, err := ParseConsistencyLevel("<unknown>")
		Expect(err).To(MatchError(`unrecognized consistency level: "<unknown>"`))
	})
})
