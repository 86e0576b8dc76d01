package offset_test

import (
	"github.com/dogmatiq/docjournal/offset"
	"github.com/jmalloc/gomegax"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type bounderStub struct {
	after   map[string]uint64
	outside []string
}

func (b *bounderStub) OrRevisedAfter(replica string, etag uint64) {
	if b.after == nil {
		b.after = map[string]uint64{}
	}
	b.after[replica] = etag
}

func (b *bounderStub) OrRevisedOutside(replicas []string) {
	b.outside = replicas
}

var _ = Describe("func Merge()", func() {
	a := offset.Vector{"A": 10, "B": 3}
	b := offset.Vector{"B": 7, "C": 1}

	It("returns the pointwise maximum", func() {
		Expect(offset.Merge(a, b)).To(gomegax.EqualX(offset.Vector{"A": 10, "B": 7, "C": 1}))
	})

	It("is commutative", func() {
		Expect(offset.Merge(a, b)).To(gomegax.EqualX(offset.Merge(b, a)))
	})

	It("is idempotent", func() {
		m := offset.Merge(a, b)
		Expect(offset.Merge(m, b)).To(gomegax.EqualX(m))
		Expect(offset.Merge(m, m)).To(gomegax.EqualX(m))
	})

	It("does not modify its inputs", func() {
		offset.Merge(a, b)
		Expect(a).To(gomegax.EqualX(offset.Vector{"A": 10, "B": 3}))
		Expect(b).To(gomegax.EqualX(offset.Vector{"B": 7, "C": 1}))
	})

	It("accepts nil vectors", func() {
		Expect(offset.Merge(nil, b)).To(gomegax.EqualX(b))
	})
})

var _ = Describe("type Vector", func() {
	Describe("func Covers()", func() {
		v := offset.Vector{"A": 10, "B": 3}

		DescribeTable(
			"it reports whether the change vector has been observed",
			func(cv offset.Vector, expect bool) {
				Expect(v.Covers(cv)).To(Equal(expect))
			},
			Entry("older revision", offset.Vector{"A": 4}, true),
			Entry("equal revision", offset.Vector{"B": 3}, true),
			Entry("newer revision", offset.Vector{"A": 11}, false),
			Entry("unknown replica", offset.Vector{"C": 1}, false),
			Entry("mixed", offset.Vector{"A": 1, "C": 1}, false),
		)
	})

	Describe("func String()", func() {
		It("sorts the replicas", func() {
			Expect(offset.Vector{"B": 3, "A": 10}.String()).To(Equal("A:10, B:3"))
		})

		It("returns an empty string for an empty vector", func() {
			Expect(offset.Vector{}.String()).To(Equal(""))
		})
	})
})

var _ = Describe("func Parse()", func() {
	It("parses the empty string as None", func() {
		o, err := offset.Parse("")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(o).To(Equal(offset.None{}))
	})

	It("parses an integer as a sequence", func() {
		o, err := offset.Parse("42")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(o).To(Equal(offset.Sequence(42)))
	})

	It("parses the output of Vector.String()", func() {
		v := offset.Vector{"node-a": 10, "node-b": 3}

		o, err := offset.Parse(v.String())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(o).To(gomegax.EqualX(v))
	})

	DescribeTable(
		"it returns an error if the vector is malformed",
		func(s string) {
			_, err := offset.Parse(s)
			Expect(err).To(HaveOccurred())
		},
		Entry("missing etag", "A:"),
		Entry("missing replica", ":10"),
		Entry("non-numeric etag", "A:x"),
		Entry("duplicate replica", "A:1, A:2"),
	)
})

var _ = Describe("func ApplyAsLowerBound()", func() {
	It("adds a disjunct per replica", func() {
		q := &bounderStub{}

		err := offset.ApplyAsLowerBound(q, offset.Vector{"B": 3, "A": 10})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(q.after).To(Equal(map[string]uint64{"A": 10, "B": 3}))
		Expect(q.outside).To(Equal([]string{"A", "B"}))
	})

	It("imposes no bound for an empty vector", func() {
		q := &bounderStub{}

		err := offset.ApplyAsLowerBound(q, offset.Vector{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(q.after).To(BeNil())
		Expect(q.outside).To(BeNil())
	})

	It("imposes no bound for None", func() {
		q := &bounderStub{}

		err := offset.ApplyAsLowerBound(q, offset.None{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(q.after).To(BeNil())
	})

	It("rejects sequence offsets", func() {
		err := offset.ApplyAsLowerBound(&bounderStub{}, offset.Sequence(1))
		Expect(err).To(MatchError(offset.ErrUnsupportedOffset))
	})
})

var _ = Describe("func Compare()", func() {
	It("orders sequences", func() {
		c, err := offset.Compare(offset.Sequence(1), offset.Sequence(2))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(c).To(Equal(-1))

		c, err = offset.Compare(offset.Sequence(2), offset.None{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(c).To(Equal(+1))

		c, err = offset.Compare(offset.Sequence(0), offset.None{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(c).To(Equal(0))
	})

	It("refuses to compare vectors", func() {
		_, err := offset.Compare(offset.Vector{"A": 1}, offset.Vector{"A": 2})
		Expect(err).To(Equal(offset.ErrIncomparable))
	})
})
