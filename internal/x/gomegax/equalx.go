package gomegax

import (
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// EqualX returns a matcher that compares values using cmp.Equal().
//
// If no options are given, times are compared with time.Time.Equal() and nil
// slices and maps are considered equal to empty ones. This suits values that
// have been through an encode/decode cycle.
func EqualX(expected interface{}, options ...cmp.Option) types.GomegaMatcher {
	if len(options) == 0 {
		options = cmp.Options{
			cmp.Comparer(time.Time.Equal),
			cmpopts.EquateEmpty(),
		}
	}

	return cmpMatcher{expected, options}
}

type cmpMatcher struct {
	expected interface{}
	options  cmp.Options
}

func (m cmpMatcher) Match(actual interface{}) (bool, error) {
	return cmp.Equal(actual, m.expected, m.options), nil
}

func (m cmpMatcher) FailureMessage(actual interface{}) string {
	if a, ok := actual.(string); ok {
		if e, ok := m.expected.(string); ok {
			return format.MessageWithDiff(a, "to equal", e)
		}
	}

	return m.message(actual, "to equal")
}

func (m cmpMatcher) NegatedFailureMessage(actual interface{}) string {
	return m.message(actual, "not to equal")
}

func (m cmpMatcher) message(actual interface{}, relation string) string {
	diff := cmp.Diff(actual, m.expected, m.options)

	return format.Message(actual, relation, m.expected) +
		"\n\nDiff:\n" + format.IndentString(diff, 1)
}
