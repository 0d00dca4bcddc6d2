package targeting

import (
	"regexp"
	"strings"

	"github.com/splitroute/splitroute/internal/model"
)

// applyOperator runs one string predicate. Comparison is
// case-insensitive. An invalid regex pattern degrades to "no match",
// never an error: rule values are user-supplied.
func applyOperator(op model.RuleOperator, actual, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(actual))
	e := strings.ToLower(strings.TrimSpace(expected))

	switch op {
	case model.OpEquals:
		return a == e
	case model.OpNotEquals:
		return a != e
	case model.OpContains:
		return strings.Contains(a, e)
	case model.OpNotContains:
		return !strings.Contains(a, e)
	case model.OpStartsWith:
		return strings.HasPrefix(a, e)
	case model.OpNotStartsWith:
		return !strings.HasPrefix(a, e)
	case model.OpEndsWith:
		return strings.HasSuffix(a, e)
	case model.OpNotEndsWith:
		return !strings.HasSuffix(a, e)
	case model.OpRegex:
		re, err := regexp.Compile("(?i)" + expected)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	default:
		return false
	}
}
