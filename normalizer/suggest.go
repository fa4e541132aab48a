package normalizer

import (
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

const suggestionThreshold = 0.5

// Suggestion is the best source column found for a required column.
type Suggestion struct {
	Column string  `json:"column"`
	Score  float64 `json:"score"`
}

// SuggestMapping proposes, for every required column of importType, the
// source column whose name is most similar. Only matches scoring above 0.5
// are returned.
func SuggestMapping(table models.RawTable, importType models.ImportType) map[string]Suggestion {
	required, ok := RequiredColumns(importType)
	if !ok {
		return map[string]Suggestion{}
	}
	out := make(map[string]Suggestion, len(required))
	for _, req := range required {
		best := Suggestion{}
		for _, col := range table.Columns {
			if s := ColumnSimilarity(req, col); s > best.Score {
				best = Suggestion{Column: col, Score: s}
			}
		}
		if best.Score > suggestionThreshold {
			out[req] = best
		}
	}
	return out
}

// SuggestedColumns flattens SuggestMapping into {required: source}.
func SuggestedColumns(table models.RawTable, importType models.ImportType) map[string]string {
	out := map[string]string{}
	for k, s := range SuggestMapping(table, importType) {
		out[k] = s.Column
	}
	return out
}

// ColumnSimilarity scores two column names: 1 when equal, 0.8 when one
// contains the other, else Jaccard similarity of their character sets.
// Underscores, spaces and hyphens are ignored.
func ColumnSimilarity(a, b string) float64 {
	a, b = similarityKey(a), similarityKey(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}
	setA := map[rune]bool{}
	for _, r := range a {
		setA[r] = true
	}
	setB := map[rune]bool{}
	for _, r := range b {
		setB[r] = true
	}
	inter := 0
	for r := range setA {
		if setB[r] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func similarityKey(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(s)
}
