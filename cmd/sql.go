package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/report"
	"github.com/pable/go-qb-metrics/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the run database",
	Long: `Run an arbitrary SQL query against the run database and print results as a table.

Schema overview:
  runs(id, tournament, created_at, matches, players, tossups, diagnostics)
  players(run_id, ordinal, name, games)
  categories(run_id, ordinal, name, synthetic)
  player_overall_stats(run_id, player, points, powers, tens, negs, heard,
    buzz_positions)
  player_category_stats(run_id, player, category, synthetic, points, powers,
    tens, negs, heard, buzz_positions)   -- synthetic = roll-up record
  tossups(run_id, ordinal, packet, round, question_number, category, answer, text,
    heard_by, correct_player, correct_points, correct_position,
    incorrect_player, incorrect_points, incorrect_position)
  diagnostics(run_id, ordinal, kind, code, message, fields)

Example: qbmetrics sql "SELECT player, SUM(points) FROM player_category_stats
  WHERE category = 'Science' GROUP BY player ORDER BY 2 DESC"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := report.NewTable(os.Stdout, tw.AlignLeft)

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}

