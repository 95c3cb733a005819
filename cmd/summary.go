package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/report"
	"github.com/pable/go-qb-metrics/internal/storage"
)

var summaryTop int

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all runs stored in the database:
run count, date range, and every player's overall record summed across runs.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryTop, "top", 20, "players listed, 0 for all")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Run 'qbmetrics ingest <tournament> <match.qbj>...' to add one.")
		return nil
	}
	totals, err := db.PlayerTotals()
	if err != nil {
		return fmt.Errorf("player totals: %w", err)
	}

	var matches, tossups, warnings int
	for _, r := range runs {
		matches += r.Matches
		tossups += r.Tossups
		warnings += r.Diagnostics
	}
	oldest, newest := runs[len(runs)-1].CreatedAt, runs[0].CreatedAt

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Runs stored   : %d\n", len(runs))
	fmt.Fprintf(os.Stdout, "  Date range    : %s → %s\n", oldest.Local().Format("2006-01-02"), newest.Local().Format("2006-01-02"))
	fmt.Fprintf(os.Stdout, "  Matches       : %d\n", matches)
	fmt.Fprintf(os.Stdout, "  Tossups       : %d\n", tossups)
	fmt.Fprintf(os.Stdout, "  Players seen  : %d\n", len(totals))
	fmt.Fprintf(os.Stdout, "  Warnings      : %d\n", warnings)

	if summaryTop > 0 && len(totals) > summaryTop {
		totals = totals[:summaryTop]
	}
	fmt.Fprintf(os.Stdout, "\n--- Players (all runs) ---\n\n")
	printPlayerTotals(os.Stdout, totals)
	return nil
}

func printPlayerTotals(w io.Writer, totals []storage.PlayerTotal) {
	pt := report.NewTable(w, tw.AlignRight)
	pt.Header("#", "PLAYER", "RUNS", "GP", "PTS", "HEARD", "PP20", "15", "10", "-5")
	for i, t := range totals {
		pt.Append(
			strconv.Itoa(i+1),
			string(t.Player),
			strconv.Itoa(t.Runs),
			strconv.Itoa(t.Games),
			strconv.Itoa(t.Stat.Points),
			strconv.Itoa(t.Stat.Heard),
			fmt.Sprintf("%.2f", t.Stat.PointsPer20()),
			strconv.Itoa(t.Stat.Powers),
			strconv.Itoa(t.Stat.Tens),
			strconv.Itoa(t.Stat.Negs),
		)
	}
	pt.Render()
}
