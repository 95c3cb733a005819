package category

import (
	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/pable/go-qb-metrics/internal/model"
)

// SimilarPair is two distinct labels that are probably spellings of the same
// category and likely need a rewrite entry.
type SimilarPair struct {
	A, B     model.Category
	Distance int  // edit distance between the case-folded labels
	CaseOnly bool // labels differ only in letter case
}

// SimilarLabels reports label pairs whose case-folded forms are within
// maxDistance edits of each other. Pairs are returned in input order.
// Labels shorter than or equal to maxDistance runes are never compared,
// since any two of them would match.
func SimilarLabels(labels []model.Category, maxDistance int) []SimilarPair {
	fold := cases.Fold()
	folded := make([]string, len(labels))
	for i, l := range labels {
		folded[i] = fold.String(string(l))
	}

	var out []SimilarPair
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			if labels[i] == labels[j] {
				continue
			}
			if folded[i] == folded[j] {
				out = append(out, SimilarPair{A: labels[i], B: labels[j], CaseOnly: true})
				continue
			}
			if maxDistance <= 0 || runeLen(folded[i]) <= maxDistance || runeLen(folded[j]) <= maxDistance {
				continue
			}
			if d := levenshtein.ComputeDistance(folded[i], folded[j]); d <= maxDistance {
				out = append(out, SimilarPair{A: labels[i], B: labels[j], Distance: d})
			}
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
