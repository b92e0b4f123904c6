package ledger

import (
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// TokenSortRatio scores two strings 0..100 after sorting their whitespace-separated
// tokens. The score is the matching-block ratio 2*M/T of the sorted forms.
func TokenSortRatio(a, b string) int {
	a, b = sortTokens(a), sortTokens(b)
	if a == "" || b == "" {
		return 0
	}

	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return int(math.Round(matcher.Ratio() * 100))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
