package category

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-qb-metrics/internal/model"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(Default())

	tests := []struct {
		name string
		raw  string
		want model.Category
	}{
		{"parent-child pair", "Science - Biology", "Biology"},
		{"no space before dash", "Science- Chemistry", "Chemistry"},
		{"no space after dash", "History -Ancient History", "Ancient History"},
		{"plain label", "Physics", "Physics"},
		{"surrounding whitespace", "  Other Science ", "Other Science"},
		{"rewrite", "World Lit", "World Literature"},
		{"rewrite after split", "Literature - World Lit", "World Literature"},
		{"second rewrite variant", "Literature World", "World Literature"},
		{"trailing separator keeps label", "Science -", "Science -"},
		{"hyphenated word untouched", "Trash-Pop Culture", "Trash-Pop Culture"},
		{"empty", "", Uncategorized},
		{"whitespace only", "   ", Uncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw))
		})
	}
}

func TestNormalize_CustomTaxonomy(t *testing.T) {
	tax := Taxonomy{
		Separators: []string{" / "},
		Rewrites:   map[string]string{"Bio": "Biology"},
	}
	n := NewNormalizer(tax)
	assert.Equal(t, model.Category("Biology"), n.Normalize("Science / Bio"))
	// Dash is not a separator in this taxonomy.
	assert.Equal(t, model.Category("Science - Bio"), n.Normalize("Science - Bio"))
}

func TestDefaultTaxonomy(t *testing.T) {
	tax := Default()
	require.NoError(t, tax.Validate())
	assert.Equal(t,
		[]model.Category{"Science", "Literature", "History", "Fine Arts", "RMPSS"},
		tax.Priority())
	assert.Equal(t,
		[]model.Category{"Biology", "Chemistry", "Physics", "Other Science"},
		tax.Rollups[0].Constituents)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"rollup without name", "rollups:\n  - constituents: [A]\n"},
		{"rollup without constituents", "rollups:\n  - name: X\n"},
		{"duplicate rollup", "rollups:\n  - name: X\n    constituents: [A]\n  - name: X\n    constituents: [B]\n"},
		{"rewrite chain", "rewrites:\n  a: b\n  b: c\n"},
		{"unknown field", "categories: [A]\n"},
		{"empty separator", "separators: [\"\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FileRoundTrip(t *testing.T) {
	tax := Default()
	data, err := tax.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tax, got)

	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, tax, def)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSimilarLabels(t *testing.T) {
	labels := []model.Category{"World Literature", "world literature", "Wrld Literature", "Physics", "Chemistry"}

	pairs := SimilarLabels(labels, 2)
	require.Len(t, pairs, 3)

	assert.Equal(t, SimilarPair{A: "World Literature", B: "world literature", CaseOnly: true}, pairs[0])
	assert.Equal(t, SimilarPair{A: "World Literature", B: "Wrld Literature", Distance: 1}, pairs[1])
	assert.Equal(t, SimilarPair{A: "world literature", B: "Wrld Literature", Distance: 1}, pairs[2])

	assert.Empty(t, SimilarLabels([]model.Category{"Art", "Arts"}, 0))
	// Short labels are skipped rather than matched against everything.
	assert.Empty(t, SimilarLabels([]model.Category{"Ab", "Cd"}, 2))
}
