package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored ingest runs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
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
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []storage.Run) {
	cHeader.Fprintf(w, "%-10s  %-24s  %-16s  %7s  %7s  %7s  %s\n",
		"ID", "TOURNAMENT", "CREATED", "MATCHES", "PLAYERS", "TOSSUPS", "WARN")
	cMuted.Fprintf(w, "%-10s  %-24s  %-16s  %7s  %7s  %7s  %s\n",
		"──────────", "────────────────────────", "────────────────", "───────", "───────", "───────", "────")
	for _, r := range runs {
		fmt.Fprintf(w, "%-10s  %-24s  %-16s  %7d  %7d  %7d  %d\n",
			shortID(r.ID), truncate(r.Tournament, 24), r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Matches, r.Players, r.Tossups, r.Diagnostics)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
