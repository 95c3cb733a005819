package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-qb-metrics/internal/model"
)

// NewTable returns a table with centred headers and rows aligned by align.
func NewTable(w io.Writer, align tw.Align) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: align},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func newTable(w io.Writer) *tablewriter.Table {
	return NewTable(w, tw.AlignRight)
}

func statCells(s StatLine) []any {
	return []any{
		fmt.Sprintf("%.2f", s.PointsPer20),
		strconv.Itoa(s.Points),
		strconv.Itoa(s.Heard),
		strconv.Itoa(s.Powers),
		strconv.Itoa(s.Tens),
		strconv.Itoa(s.Negs),
		s.AvgPosition,
		s.MedPosition,
	}
}

var statHeader = []any{"PP20", "PTS", "HEARD", "15", "10", "-5", "AVG_POS", "MED_POS"}

// PrintHeader prints a one-line summary of the run.
func PrintHeader(w io.Writer, m Model) {
	fmt.Fprintf(w, "\nTournament: %s  |  Matches: %d  |  Players: %d  |  Categories: %d\n\n",
		m.Tournament, m.Matches, len(m.Players), len(m.CategoryOrder))
}

// PrintCategoryBoards prints one table per category. If only is non-empty,
// only that category is printed. Synthetic categories are marked with "*";
// within them a player's base record of the same name is marked "(base)".
func PrintCategoryBoards(w io.Writer, boards []CategoryBoard, only model.Category) {
	for _, b := range boards {
		if only != "" && b.Category != only {
			continue
		}
		title := string(b.Category)
		if b.Synthetic {
			title += " *"
		}
		fmt.Fprintf(w, "--- %s ---\n\n", title)
		table := newTable(w)
		table.Header(append([]any{"#", "PLAYER"}, statHeader...)...)
		for i, r := range b.Rows {
			name := string(r.Player)
			if b.Synthetic && !r.Synthetic {
				name += " (base)"
			}
			row := append([]any{strconv.Itoa(i + 1), name}, statCells(r.StatLine)...)
			table.Append(row...)
		}
		table.Render()
		fmt.Fprintln(w)
	}
}

// PrintPlayerBoards prints each player's categories, best first. If only is
// non-empty, only that player is printed.
func PrintPlayerBoards(w io.Writer, boards []PlayerBoard, only model.PlayerName) {
	for _, b := range boards {
		if only != "" && b.Player != only {
			continue
		}
		fmt.Fprintf(w, "--- %s (%d games) ---\n\n", b.Player, b.Games)
		table := newTable(w)
		table.Header(append([]any{"CATEGORY"}, statHeader...)...)
		for _, r := range b.Rows {
			name := string(r.Category)
			if r.Synthetic {
				name += " *"
			}
			table.Append(append([]any{name}, statCells(r.StatLine)...)...)
		}
		table.Append(append([]any{"OVERALL"}, statCells(b.Overall)...)...)
		table.Render()
		fmt.Fprintln(w)
	}
}

// PrintOverallBoard prints the tournament-wide player ranking.
func PrintOverallBoard(w io.Writer, rows []OverallRow) {
	table := newTable(w)
	table.Header(append([]any{"#", "PLAYER", "GP"}, statHeader...)...)
	for i, r := range rows {
		row := append([]any{strconv.Itoa(i + 1), string(r.Player), strconv.Itoa(r.Games)}, statCells(r.StatLine)...)
		table.Append(row...)
	}
	table.Render()
}

// PrintEarliestBuzzes prints each player's earliest correct buzzes.
func PrintEarliestBuzzes(w io.Writer, boards []BuzzBoard, only model.PlayerName) {
	for _, b := range boards {
		if only != "" && b.Player != only {
			continue
		}
		fmt.Fprintf(w, "--- Earliest buzzes: %s ---\n\n", b.Player)
		for i, e := range b.Entries {
			pos := fmt.Sprintf("%d/%d (%.0f%%)", e.Position, e.Words, e.Fraction*100)
			if !e.Highlighted {
				pos += " !"
			}
			fmt.Fprintf(w, "%2d. [%s] %s\n    ANSWER: %s\n    %s\n\n", i+1, e.Category, pos, e.Answer, e.Marked)
		}
	}
}

// Print writes the whole report model as text tables.
func Print(w io.Writer, m Model) {
	PrintHeader(w, m)
	fmt.Fprintf(w, "=== Overall ===\n\n")
	PrintOverallBoard(w, m.Overall)
	fmt.Fprintf(w, "\n=== Categories ===\n\n")
	PrintCategoryBoards(w, m.Categories, "")
	fmt.Fprintf(w, "=== Players ===\n\n")
	PrintPlayerBoards(w, m.Players, "")
	if len(m.EarliestBuzzes) > 0 {
		fmt.Fprintf(w, "=== Earliest buzzes ===\n\n")
		PrintEarliestBuzzes(w, m.EarliestBuzzes, "")
	}
}

// WriteJSON writes the report model as indented JSON for an external renderer.
func WriteJSON(w io.Writer, m Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
