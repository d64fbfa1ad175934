// Package suggest ranks candidate names by fuzzy similarity to power the
// evaluator's "did you mean" hint on an undefined-symbol error.
package suggest

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Closest returns the best fuzzy match for name among candidates, or ""
// if none is a subsequence match at all.
func Closest(name string, candidates []string) string {
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
