package aggregator

import (
	"github.com/pable/go-qb-metrics/internal/category"
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// Tournament is the run-wide accumulation state. It is not safe for
// concurrent use; see IngestAll for parallel ingestion.
type Tournament struct {
	normalizer *category.Normalizer
	diags      *diag.Collector

	players     []model.PlayerName // registration order
	games       map[model.PlayerName]int
	categories  []model.Category // insertion order
	categorySet map[model.Category]bool
	synthetic   map[model.Category]bool

	tossups []model.Tossup

	byCategory map[model.PlayerName]map[model.Category]*model.PlayerCatStat
	overall    map[model.PlayerName]*model.PlayerCatStat

	// rolled marks the records Rollup created, per player.
	rolled map[model.PlayerName]map[model.Category]bool
}

// New returns an empty tournament. Diagnostics are recorded into diags,
// which may be nil to discard them.
func New(n *category.Normalizer, diags *diag.Collector) *Tournament {
	return &Tournament{
		normalizer:  n,
		diags:       diags,
		games:       make(map[model.PlayerName]int),
		categorySet: make(map[model.Category]bool),
		synthetic:   make(map[model.Category]bool),
		byCategory:  make(map[model.PlayerName]map[model.Category]*model.PlayerCatStat),
		overall:     make(map[model.PlayerName]*model.PlayerCatStat),
		rolled:      make(map[model.PlayerName]map[model.Category]bool),
	}
}

// Diagnostics returns the collector this tournament reports into.
func (t *Tournament) Diagnostics() *diag.Collector { return t.diags }

// ---- registries ----

func (t *Tournament) registerPlayer(p model.PlayerName) {
	if _, ok := t.games[p]; ok {
		return
	}
	t.games[p] = 0
	t.players = append(t.players, p)
}

func (t *Tournament) registerCategory(c model.Category) {
	if t.categorySet[c] {
		return
	}
	t.categorySet[c] = true
	t.categories = append(t.categories, c)
}

// catStat returns the player's record for c, creating it on first touch.
func (t *Tournament) catStat(p model.PlayerName, c model.Category) *model.PlayerCatStat {
	cats, ok := t.byCategory[p]
	if !ok {
		cats = make(map[model.Category]*model.PlayerCatStat)
		t.byCategory[p] = cats
	}
	s, ok := cats[c]
	if !ok {
		s = &model.PlayerCatStat{}
		cats[c] = s
	}
	return s
}

// overallStat returns the player's overall record, creating it on first touch.
func (t *Tournament) overallStat(p model.PlayerName) *model.PlayerCatStat {
	s, ok := t.overall[p]
	if !ok {
		s = &model.PlayerCatStat{}
		t.overall[p] = s
	}
	return s
}

// ---- read accessors (never create) ----

// Players returns players in registration order.
func (t *Tournament) Players() []model.PlayerName {
	out := make([]model.PlayerName, len(t.players))
	copy(out, t.players)
	return out
}

// GamesPlayed returns the number of matches in which p heard at least one tossup.
func (t *Tournament) GamesPlayed(p model.PlayerName) int { return t.games[p] }

// Categories returns categories in insertion order, synthetic ones included.
func (t *Tournament) Categories() []model.Category {
	out := make([]model.Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// IsSynthetic reports whether c was produced by Rollup for any player.
func (t *Tournament) IsSynthetic(c model.Category) bool { return t.synthetic[c] }

// IsRolledUp reports whether p's record in c was produced by Rollup. It is
// false for a base category that shares a roll-up's name.
func (t *Tournament) IsRolledUp(p model.PlayerName, c model.Category) bool { return t.rolled[p][c] }

func (t *Tournament) markRolledUp(p model.PlayerName, c model.Category) {
	if t.rolled[p] == nil {
		t.rolled[p] = make(map[model.Category]bool)
	}
	t.rolled[p][c] = true
}

// Tossups returns the processed tossups in ingestion order.
func (t *Tournament) Tossups() []model.Tossup { return t.tossups }

// CategoryStat returns a copy of p's record in c.
func (t *Tournament) CategoryStat(p model.PlayerName, c model.Category) (model.PlayerCatStat, bool) {
	s, ok := t.byCategory[p][c]
	if !ok {
		return model.PlayerCatStat{}, false
	}
	return *s, true
}

// OverallStat returns a copy of p's overall record.
func (t *Tournament) OverallStat(p model.PlayerName) (model.PlayerCatStat, bool) {
	s, ok := t.overall[p]
	if !ok {
		return model.PlayerCatStat{}, false
	}
	return *s, true
}

// PlayerCategories returns the categories p has a record in, in tournament
// category order.
func (t *Tournament) PlayerCategories(p model.PlayerName) []model.Category {
	cats := t.byCategory[p]
	if len(cats) == 0 {
		return nil
	}
	out := make([]model.Category, 0, len(cats))
	for _, c := range t.categories {
		if _, ok := cats[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
