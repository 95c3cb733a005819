package aggregator

import (
	"github.com/pable/go-qb-metrics/internal/category"
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// Rollup adds a synthetic category per definition to every player that has
// category stats, summing whichever constituents the player has. A player
// that already holds a category with the synthetic name is left untouched
// and a diagnostic is raised, so calling Rollup twice never double-counts.
func (t *Tournament) Rollup(defs []category.Rollup) {
	for _, p := range t.players {
		cats := t.byCategory[p]
		if len(cats) == 0 {
			continue
		}
		for _, def := range defs {
			if _, exists := cats[def.Name]; exists {
				t.diags.Add(diag.Taxonomy, diag.CodeRollupCollision,
					"player already has a category with the rollup name; rollup skipped",
					diag.F("player", p),
					diag.F("category", def.Name),
				)
				continue
			}
			sum := model.PlayerCatStat{}
			for _, c := range def.Constituents {
				if s, ok := cats[c]; ok {
					sum = model.Combine(sum, *s)
				}
			}
			cats[def.Name] = &sum
			t.markRolledUp(p, def.Name)
			t.registerCategory(def.Name)
			t.synthetic[def.Name] = true
		}
	}
}
