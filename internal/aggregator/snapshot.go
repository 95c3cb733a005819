package aggregator

import (
	"github.com/pable/go-qb-metrics/internal/category"
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// PlayerRecord is a player's registry entry and overall record.
type PlayerRecord struct {
	Name    model.PlayerName
	Games   int
	Overall *model.PlayerCatStat // nil if the player never heard a tossup
}

// CategoryRecord is one entry of the ordered category set.
type CategoryRecord struct {
	Name      model.Category
	Synthetic bool
}

// CategoryStatRecord is one player/category record. Synthetic is set when
// Rollup produced the record for this player.
type CategoryStatRecord struct {
	Player    model.PlayerName
	Category  model.Category
	Synthetic bool
	Stat      model.PlayerCatStat
}

// Snapshot is a flat, ordered copy of a tournament's state, used for
// persistence.
type Snapshot struct {
	Players    []PlayerRecord
	Categories []CategoryRecord
	Stats      []CategoryStatRecord
	Tossups    []model.Tossup
}

// Snapshot copies the tournament's state. Records are ordered by player
// registration, then category insertion.
func (t *Tournament) Snapshot() Snapshot {
	var snap Snapshot
	for _, p := range t.players {
		rec := PlayerRecord{Name: p, Games: t.games[p]}
		if s, ok := t.overall[p]; ok {
			cp := *s
			rec.Overall = &cp
		}
		snap.Players = append(snap.Players, rec)
	}
	for _, c := range t.categories {
		snap.Categories = append(snap.Categories, CategoryRecord{Name: c, Synthetic: t.synthetic[c]})
	}
	for _, p := range t.players {
		cats := t.byCategory[p]
		for _, c := range t.categories {
			if s, ok := cats[c]; ok {
				snap.Stats = append(snap.Stats, CategoryStatRecord{
					Player:    p,
					Category:  c,
					Synthetic: t.rolled[p][c],
					Stat:      *s,
				})
			}
		}
	}
	snap.Tossups = append(snap.Tossups, t.tossups...)
	return snap
}

// Restore rebuilds a tournament from a snapshot.
func Restore(n *category.Normalizer, diags *diag.Collector, snap Snapshot) *Tournament {
	t := New(n, diags)
	for _, p := range snap.Players {
		t.registerPlayer(p.Name)
		t.games[p.Name] = p.Games
		if p.Overall != nil {
			*t.overallStat(p.Name) = *p.Overall
		}
	}
	for _, c := range snap.Categories {
		t.registerCategory(c.Name)
		if c.Synthetic {
			t.synthetic[c.Name] = true
		}
	}
	for _, s := range snap.Stats {
		t.registerPlayer(s.Player)
		t.registerCategory(s.Category)
		*t.catStat(s.Player, s.Category) = s.Stat
		if s.Synthetic {
			t.markRolledUp(s.Player, s.Category)
		}
	}
	t.tossups = append(t.tossups, snap.Tossups...)
	return t
}
