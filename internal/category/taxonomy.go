// Package category canonicalizes upstream category labels and holds the
// taxonomy of synthetic roll-up categories.
package category

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pable/go-qb-metrics/internal/model"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomyYAML []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Taxonomy errors.
var (
	ErrDuplicateRollup = errors.New("duplicate rollup name")
	ErrRewriteChain    = errors.New("rewrite target is itself rewritten")
)

// Rollup defines a synthetic category as the sum of its constituents.
type Rollup struct {
	Name         model.Category   `yaml:"name" json:"name" validate:"required"`
	Constituents []model.Category `yaml:"constituents" json:"constituents" validate:"required,min=1,dive,required"`
}

// Taxonomy is the configuration shared by the Normalizer and the roll-up step.
type Taxonomy struct {
	Separators []string          `yaml:"separators" json:"separators" validate:"dive,required"`
	Rewrites   map[string]string `yaml:"rewrites" json:"rewrites" validate:"dive,keys,required,endkeys,required"`
	Rollups    []Rollup          `yaml:"rollups" json:"rollups" validate:"dive"`
}

// Validate checks struct constraints plus rules the tags cannot express.
func (t Taxonomy) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("taxonomy validation failed: %w", err)
	}
	seen := make(map[model.Category]bool, len(t.Rollups))
	for _, r := range t.Rollups {
		if seen[r.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateRollup, r.Name)
		}
		seen[r.Name] = true
	}
	for from, to := range t.Rewrites {
		if _, ok := t.Rewrites[to]; ok && to != from {
			return fmt.Errorf("%w: %q -> %q", ErrRewriteChain, from, to)
		}
	}
	return nil
}

// Priority returns the roll-up names in display order.
func (t Taxonomy) Priority() []model.Category {
	out := make([]model.Category, len(t.Rollups))
	for i, r := range t.Rollups {
		out[i] = r.Name
	}
	return out
}

// Default returns the embedded taxonomy.
func Default() Taxonomy {
	t, err := Parse(bytes.NewReader(defaultTaxonomyYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy: %v", err))
	}
	return t
}

// Parse decodes and validates a YAML taxonomy.
func Parse(r io.Reader) (Taxonomy, error) {
	var t Taxonomy
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Taxonomy{}, fmt.Errorf("decode taxonomy: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Taxonomy{}, err
	}
	return t, nil
}

// Load reads a taxonomy file. An empty path yields the default taxonomy.
func Load(path string) (Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Marshal renders the taxonomy as YAML.
func (t Taxonomy) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
