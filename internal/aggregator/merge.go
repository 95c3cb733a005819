package aggregator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// Pair is a match together with the packet it was played on.
type Pair struct {
	Match *model.MatchRecord
	Bank  *model.QuestionBank
}

// Merge folds other into t. Players and categories new to t are appended
// in other's order, stat records are combined, tossups and diagnostics are
// appended. Merging partial tournaments in input order gives the same state
// as ingesting the same matches sequentially.
func (t *Tournament) Merge(other *Tournament) {
	if other == nil || other == t {
		return
	}
	for _, p := range other.players {
		t.registerPlayer(p)
		t.games[p] += other.games[p]
	}
	for _, c := range other.categories {
		t.registerCategory(c)
		if other.synthetic[c] {
			t.synthetic[c] = true
		}
	}
	for _, p := range other.players {
		if s, ok := other.overall[p]; ok {
			dst := t.overallStat(p)
			*dst = model.Combine(*dst, *s)
		}
		cats := other.byCategory[p]
		for _, c := range other.categories {
			if s, ok := cats[c]; ok {
				dst := t.catStat(p, c)
				*dst = model.Combine(*dst, *s)
			}
			if other.rolled[p][c] {
				t.markRolledUp(p, c)
			}
		}
	}
	t.tossups = append(t.tossups, other.tossups...)
	if other.diags != t.diags {
		t.diags.Append(other.diags.All()...)
	}
}

// IngestAll ingests pairs into t in order. With workers > 1 each pair is
// ingested into its own partial tournament concurrently and the partials
// are merged back in input order, so the result and the diagnostic order
// match a sequential run.
func IngestAll(ctx context.Context, t *Tournament, pairs []Pair, workers int) error {
	if workers <= 1 || len(pairs) < 2 {
		for _, p := range pairs {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			t.Ingest(p.Match, p.Bank)
		}
		return nil
	}

	partials := make([]*Tournament, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partial := New(t.normalizer, diag.NewCollector(nil))
			partial.Ingest(p.Match, p.Bank)
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for _, partial := range partials {
		t.Merge(partial)
	}
	return nil
}
