package category

import (
	"strings"

	"github.com/pable/go-qb-metrics/internal/model"
)

// Uncategorized is the category of a tossup whose label is blank.
const Uncategorized model.Category = "Uncategorized"

// Normalizer maps raw packet category labels onto canonical categories.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	separators []string
	rewrites   map[string]model.Category
}

// NewNormalizer builds a Normalizer from the separator and rewrite tables of t.
func NewNormalizer(t Taxonomy) *Normalizer {
	rewrites := make(map[string]model.Category, len(t.Rewrites))
	for from, to := range t.Rewrites {
		rewrites[model.CleanName(from)] = model.Category(model.CleanName(to))
	}
	seps := make([]string, 0, len(t.Separators))
	for _, s := range t.Separators {
		if s != "" {
			seps = append(seps, s)
		}
	}
	return &Normalizer{separators: seps, rewrites: rewrites}
}

// Normalize returns the canonical category for raw. A label such as
// "Science - Biology" keeps the part after the earliest separator; the
// result is then looked up in the rewrite table. If splitting leaves
// nothing, the whole label is kept. A blank label is Uncategorized.
func (n *Normalizer) Normalize(raw string) model.Category {
	label := model.CleanName(raw)
	if label == "" {
		return Uncategorized
	}
	if child, ok := n.split(label); ok {
		label = child
	}
	if to, ok := n.rewrites[label]; ok {
		return to
	}
	return model.Category(label)
}

func (n *Normalizer) split(label string) (string, bool) {
	best, bestLen := -1, 0
	for _, sep := range n.separators {
		if i := strings.Index(label, sep); i >= 0 && (best < 0 || i < best) {
			best, bestLen = i, len(sep)
		}
	}
	if best < 0 {
		return "", false
	}
	child := strings.TrimSpace(label[best+bestLen:])
	if child == "" {
		return "", false
	}
	return child, true
}
