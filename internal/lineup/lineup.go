// Package lineup resolves which players were on the clock for a question.
package lineup

import (
	"sort"

	"github.com/pable/go-qb-metrics/internal/model"
)

// Timeline is a team's lineup history sorted by first question.
type Timeline struct {
	sorted   []model.Lineup
	fallback []model.PlayerName // first lineup in file order
}

// NewTimeline sorts history once. The input slice is not modified.
func NewTimeline(history []model.Lineup) Timeline {
	if len(history) == 0 {
		return Timeline{}
	}
	sorted := make([]model.Lineup, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FirstQuestion < sorted[j].FirstQuestion
	})
	return Timeline{sorted: sorted, fallback: history[0].Players}
}

// Resolve returns the active lineup for question q: the last lineup whose
// first question is <= q. When none qualifies the first lineup as listed in
// the file is used. An empty history resolves to nil.
func (t Timeline) Resolve(q int) []model.PlayerName {
	if len(t.sorted) == 0 {
		return nil
	}
	// First index whose FirstQuestion > q.
	i := sort.Search(len(t.sorted), func(i int) bool {
		return t.sorted[i].FirstQuestion > q
	})
	if i == 0 {
		return t.fallback
	}
	return t.sorted[i-1].Players
}

// Len is the number of lineups in the timeline.
func (t Timeline) Len() int { return len(t.sorted) }

// Resolve builds a timeline for history and resolves q. Callers resolving many
// questions for the same team should build a Timeline once instead.
func Resolve(history []model.Lineup, q int) []model.PlayerName {
	return NewTimeline(history).Resolve(q)
}
