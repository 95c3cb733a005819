package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// NotAvailable is shown for averages over an empty sample.
const NotAvailable = "n/a"

// HighlightMarker follows the buzzed word in a marked tossup text.
const HighlightMarker = "(#)"

// Source is the read-only view of tournament state the builder needs.
// *aggregator.Tournament implements it.
type Source interface {
	Players() []model.PlayerName
	GamesPlayed(p model.PlayerName) int
	Categories() []model.Category
	IsSynthetic(c model.Category) bool
	IsRolledUp(p model.PlayerName, c model.Category) bool
	PlayerCategories(p model.PlayerName) []model.Category
	CategoryStat(p model.PlayerName, c model.Category) (model.PlayerCatStat, bool)
	OverallStat(p model.PlayerName) (model.PlayerCatStat, bool)
	Tossups() []model.Tossup
}

// StatLine is the rendered form of one PlayerCatStat.
type StatLine struct {
	Points      int     `json:"points"`
	Heard       int     `json:"heard"`
	PointsPer20 float64 `json:"points_per_20"`
	Powers      int     `json:"powers"`
	Tens        int     `json:"tens"`
	Negs        int     `json:"negs"`
	AvgPosition string  `json:"avg_position"`
	MedPosition string  `json:"median_position"`
}

func newStatLine(s model.PlayerCatStat) StatLine {
	avg, med := NotAvailable, NotAvailable
	if v, ok := s.AvgBuzzPosition(); ok {
		avg = fmt.Sprintf("%.1f", v)
	}
	if v, ok := s.MedianBuzzPosition(); ok {
		med = fmt.Sprintf("%.1f", v)
	}
	return StatLine{
		Points:      s.Points,
		Heard:       s.Heard,
		PointsPer20: s.PointsPer20(),
		Powers:      s.Powers,
		Tens:        s.Tens,
		Negs:        s.Negs,
		AvgPosition: avg,
		MedPosition: med,
	}
}

// CategoryRow is one player's line in a category leaderboard. Synthetic is
// false for a base record that shares a roll-up's name.
type CategoryRow struct {
	Player    model.PlayerName `json:"player"`
	Synthetic bool             `json:"synthetic"`
	StatLine
}

// CategoryBoard ranks players within one category. Synthetic is set when
// any player's record in the category came from a roll-up.
type CategoryBoard struct {
	Category  model.Category `json:"category"`
	Synthetic bool           `json:"synthetic"`
	Rows      []CategoryRow  `json:"rows"`
}

// PlayerRow is one category's line in a player's breakdown.
type PlayerRow struct {
	Category  model.Category `json:"category"`
	Synthetic bool           `json:"synthetic"`
	StatLine
}

// PlayerBoard ranks a player's categories.
type PlayerBoard struct {
	Player  model.PlayerName `json:"player"`
	Games   int              `json:"games"`
	Overall StatLine         `json:"overall"`
	Rows    []PlayerRow      `json:"rows"`
}

// OverallRow is a player's tournament-wide line.
type OverallRow struct {
	Player model.PlayerName `json:"player"`
	Games  int              `json:"games"`
	StatLine
}

// BuzzEntry is one tossup on a player's earliest-buzz board.
type BuzzEntry struct {
	Marked      string         `json:"text"` // text with HighlightMarker after the buzzed word
	Answer      string         `json:"answer"`
	Category    model.Category `json:"category"`
	Position    int            `json:"position"`
	Words       int            `json:"words"`
	Fraction    float64        `json:"fraction"`
	Highlighted bool           `json:"highlighted"`
}

// BuzzBoard lists a player's earliest correct buzzes.
type BuzzBoard struct {
	Player  model.PlayerName `json:"player"`
	Entries []BuzzEntry      `json:"entries"`
}

// OrderCategories returns the display order: synthetic categories in
// priority order, then every other category in insertion order.
func OrderCategories(src Source, priority []model.Category) []model.Category {
	all := src.Categories()
	present := make(map[model.Category]bool, len(all))
	for _, c := range all {
		present[c] = true
	}
	out := make([]model.Category, 0, len(all))
	emitted := make(map[model.Category]bool, len(all))
	for _, c := range priority {
		if present[c] && src.IsSynthetic(c) && !emitted[c] {
			out = append(out, c)
			emitted[c] = true
		}
	}
	for _, c := range all {
		if !emitted[c] {
			out = append(out, c)
			emitted[c] = true
		}
	}
	return out
}

// BuildCategoryLeaderboards ranks players by points per 20 tossups heard in
// every category. Ties keep registration order.
func BuildCategoryLeaderboards(src Source, priority []model.Category) []CategoryBoard {
	players := src.Players()
	var boards []CategoryBoard
	for _, c := range OrderCategories(src, priority) {
		board := CategoryBoard{Category: c, Synthetic: src.IsSynthetic(c)}
		for _, p := range players {
			if s, ok := src.CategoryStat(p, c); ok {
				board.Rows = append(board.Rows, CategoryRow{
					Player:    p,
					Synthetic: src.IsRolledUp(p, c),
					StatLine:  newStatLine(s),
				})
			}
		}
		sort.SliceStable(board.Rows, func(i, j int) bool {
			return board.Rows[i].PointsPer20 > board.Rows[j].PointsPer20
		})
		boards = append(boards, board)
	}
	return boards
}

// BuildPlayerLeaderboards ranks every player's categories by points per 20.
// Ties keep display order.
func BuildPlayerLeaderboards(src Source, priority []model.Category) []PlayerBoard {
	order := OrderCategories(src, priority)
	var boards []PlayerBoard
	for _, p := range src.Players() {
		board := PlayerBoard{Player: p, Games: src.GamesPlayed(p)}
		if s, ok := src.OverallStat(p); ok {
			board.Overall = newStatLine(s)
		} else {
			board.Overall = newStatLine(model.PlayerCatStat{})
		}
		for _, c := range order {
			if s, ok := src.CategoryStat(p, c); ok {
				board.Rows = append(board.Rows, PlayerRow{
					Category:  c,
					Synthetic: src.IsRolledUp(p, c),
					StatLine:  newStatLine(s),
				})
			}
		}
		sort.SliceStable(board.Rows, func(i, j int) bool {
			return board.Rows[i].PointsPer20 > board.Rows[j].PointsPer20
		})
		boards = append(boards, board)
	}
	return boards
}

// BuildOverallBoard ranks all players by overall points per 20.
func BuildOverallBoard(src Source) []OverallRow {
	var rows []OverallRow
	for _, p := range src.Players() {
		s, _ := src.OverallStat(p)
		rows = append(rows, OverallRow{Player: p, Games: src.GamesPlayed(p), StatLine: newStatLine(s)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PointsPer20 > rows[j].PointsPer20
	})
	return rows
}

type candidate struct {
	tossup   *model.Tossup
	words    int
	fraction float64
}

// BuildEarliestBuzzBoard lists, per player, the n correct buzzes made
// earliest relative to the tossup's length. n <= 0 lists them all. A buzz
// at or past the end of the text is still ranked but not highlighted. Every
// such buzz is reported to diags, whether or not it makes the list.
func BuildEarliestBuzzBoard(src Source, n int, diags *diag.Collector) []BuzzBoard {
	tossups := src.Tossups()
	byPlayer := make(map[model.PlayerName][]candidate)
	for i := range tossups {
		tu := &tossups[i]
		if tu.Correct == nil {
			continue
		}
		words := tu.WordCount()
		fraction := 1.0
		if words > 0 {
			fraction = float64(tu.Correct.Position) / float64(words)
		}
		if pos := tu.Correct.Position; pos < 0 || pos >= words {
			diags.Add(diag.DataIntegrity, diag.CodeBuzzBeyondText,
				"buzz position outside tossup text; not highlighted",
				diag.F("player", tu.Correct.Player),
				diag.F("answer", tu.Answer),
				diag.F("position", pos),
				diag.F("words", words),
			)
		}
		byPlayer[tu.Correct.Player] = append(byPlayer[tu.Correct.Player], candidate{tossup: tu, words: words, fraction: fraction})
	}

	var boards []BuzzBoard
	for _, p := range src.Players() {
		cands := byPlayer[p]
		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].fraction < cands[j].fraction
		})
		if n > 0 && len(cands) > n {
			cands = cands[:n]
		}
		board := BuzzBoard{Player: p}
		for _, c := range cands {
			pos := c.tossup.Correct.Position
			marked, ok := markPosition(c.tossup.Text, pos)
			board.Entries = append(board.Entries, BuzzEntry{
				Marked:      marked,
				Answer:      c.tossup.Answer,
				Category:    c.tossup.Category,
				Position:    pos,
				Words:       c.words,
				Fraction:    c.fraction,
				Highlighted: ok,
			})
		}
		boards = append(boards, board)
	}
	return boards
}

// markPosition inserts HighlightMarker after word pos. It returns the text
// with normalized spacing and false when pos is outside the text.
func markPosition(text string, pos int) (string, bool) {
	words := strings.Fields(text)
	if pos < 0 || pos >= len(words) {
		return strings.Join(words, " "), false
	}
	out := make([]string, 0, len(words)+1)
	out = append(out, words[:pos+1]...)
	out = append(out, HighlightMarker)
	out = append(out, words[pos+1:]...)
	return strings.Join(out, " "), true
}

// Model is everything an external renderer needs.
type Model struct {
	Tournament     string           `json:"tournament"`
	Matches        int              `json:"matches"`
	CategoryOrder  []model.Category `json:"category_order"`
	Categories     []CategoryBoard  `json:"categories"`
	Players        []PlayerBoard    `json:"players"`
	Overall        []OverallRow     `json:"overall"`
	EarliestBuzzes []BuzzBoard      `json:"earliest_buzzes"`
}

// Build assembles the full report model.
func Build(name string, matches int, src Source, priority []model.Category, topBuzzes int, diags *diag.Collector) Model {
	return Model{
		Tournament:     name,
		Matches:        matches,
		CategoryOrder:  OrderCategories(src, priority),
		Categories:     BuildCategoryLeaderboards(src, priority),
		Players:        BuildPlayerLeaderboards(src, priority),
		Overall:        BuildOverallBoard(src),
		EarliestBuzzes: BuildEarliestBuzzBoard(src, topBuzzes, diags),
	}
}
