package ledger

import (
	"strings"

	"github.com/mamadbah2/medstock/internal/domain/models"
)

// Confidence scores reported for each resolution tier.
const (
	ScoreExact     = 100
	ScorePrefix    = 90
	ScoreSubstring = 80

	// MinFuzzyScore is the lowest similarity accepted by the fuzzy tier.
	MinFuzzyScore = 50
)

// Match is a resolved record together with the confidence of the resolution.
type Match struct {
	Record models.MedicineRecord `json:"record"`
	Score  int                   `json:"score"`
}

// Resolve finds the best record for query and returns its index in records with
// the confidence score, or -1 and 0 when nothing is acceptable.
//
// Tiers run in order (exact, prefix, substring, token-sort similarity) and the
// first tier with a candidate wins. Within the prefix and substring tiers the
// earliest record in slice order is returned.
func Resolve(records []models.MedicineRecord, query string) (int, int) {
	query = models.NormalizeName(query)
	if query == "" {
		return -1, 0
	}

	for i := range records {
		if records[i].SearchName == query {
			return i, ScoreExact
		}
	}

	for i := range records {
		if strings.HasPrefix(records[i].SearchName, query) {
			return i, ScorePrefix
		}
	}

	for i := range records {
		if strings.Contains(records[i].SearchName, query) {
			return i, ScoreSubstring
		}
	}

	best, bestScore := -1, 0
	for i := range records {
		if score := TokenSortRatio(query, records[i].SearchName); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < MinFuzzyScore {
		return -1, 0
	}
	return best, bestScore
}
