package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/aggregator"
	"github.com/pable/go-qb-metrics/internal/model"
	"github.com/pable/go-qb-metrics/internal/report"
	"github.com/pable/go-qb-metrics/internal/storage"
)

var (
	showPlayer      string
	showCategory    string
	showTop         int
	showJSON        bool
	showDiagnostics bool
)

var showCmd = &cobra.Command{
	Use:   "show <run-prefix>",
	Short: "Show a stored run's leaderboards by id prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showPlayer, "player", "", "only print this player's breakdown")
	showCmd.Flags().StringVar(&showCategory, "category", "", "only print this category's leaderboard")
	showCmd.Flags().IntVar(&showTop, "top", -1, "earliest buzzes listed per player, 0 for all (default from config)")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "write the report model as JSON")
	showCmd.Flags().BoolVar(&showDiagnostics, "diagnostics", false, "also list the run's stored warnings")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	top := cfg.TopBuzzes
	if showTop >= 0 {
		top = showTop
	}
	m, run, err := loadRunModel(db, prefix, top)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Fprintf(os.Stderr, "No run found with id prefix %q\n", prefix)
		return nil
	}

	switch {
	case showJSON:
		if err := report.WriteJSON(os.Stdout, m); err != nil {
			return err
		}
	case showCategory != "" || showPlayer != "":
		printFiltered(os.Stdout, m, model.Category(showCategory), model.PlayerName(showPlayer))
	default:
		report.Print(os.Stdout, m)
	}
	if showDiagnostics {
		return printStoredDiagnostics(os.Stdout, db, run.ID)
	}
	return nil
}

// loadRunModel rebuilds the report model of the newest run matching prefix.
// It returns a nil run when nothing matches.
func loadRunModel(db *storage.DB, prefix string, top int) (report.Model, *storage.Run, error) {
	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return report.Model{}, nil, fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		return report.Model{}, nil, nil
	}
	snap, err := db.LoadSnapshot(run.ID)
	if err != nil {
		return report.Model{}, nil, fmt.Errorf("load run %s: %w", shortID(run.ID), err)
	}
	tour := aggregator.Restore(nil, nil, snap)
	m := report.Build(run.Tournament, run.Matches, tour, storedPriority(snap), top, nil)
	return m, run, nil
}

// storedPriority lists a run's synthetic categories in the order they were
// created.
func storedPriority(snap aggregator.Snapshot) []model.Category {
	var out []model.Category
	for _, c := range snap.Categories {
		if c.Synthetic {
			out = append(out, c.Name)
		}
	}
	return out
}

func printStoredDiagnostics(w io.Writer, db *storage.DB, runID string) error {
	ds, err := db.LoadDiagnostics(runID)
	if err != nil {
		return fmt.Errorf("load diagnostics: %w", err)
	}
	if len(ds) == 0 {
		cMuted.Fprintln(w, "no warnings recorded")
		return nil
	}
	cHeader.Fprintf(w, "\n--- Warnings (%d) ---\n\n", len(ds))
	for _, d := range ds {
		cWarn.Fprintf(w, "[%s] ", d.Kind)
		fmt.Fprintln(w, d.String())
	}
	return nil
}
