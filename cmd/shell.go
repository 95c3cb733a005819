package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/model"
	"github.com/pable/go-qb-metrics/internal/report"
	"github.com/pable/go-qb-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the run database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("qbmetrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	return shellLoop(db, os.Stdin, os.Stdout)
}

func shellLoop(db *storage.DB, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		cPrompt.Fprint(out, "qbmetrics")
		cMuted.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp(out)
		case "list":
			shellList(db, out)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(out, "usage: show <run-prefix> [--player <name>] [--category <name>]")
				continue
			}
			flags := shellFlags(args[1:])
			shellShow(db, out, args[0], model.Category(flags["--category"]), model.PlayerName(flags["--player"]))
		case "players":
			shellPlayers(db, out)
		case "diag":
			if len(args) == 0 {
				cError.Fprintln(out, "usage: diag <run-prefix>")
				continue
			}
			shellDiag(db, out, args[0])
		default:
			cWarn.Fprintf(out, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return scanner.Err()
}

// shellFlags collects "--flag value words..." pairs. Values run until the
// next token starting with "--" so player names may contain spaces.
func shellFlags(args []string) map[string]string {
	out := make(map[string]string)
	var key string
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			key = a
			out[key] = ""
			continue
		}
		if key == "" {
			continue
		}
		if out[key] != "" {
			out[key] += " "
		}
		out[key] += a
	}
	return out
}

func shellHelp(out io.Writer) {
	fmt.Fprintln(out)
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored runs"},
		{"show <run-prefix>", "show a run's leaderboards"},
		{"show <run-prefix> --player <name>", "one player's breakdown and earliest buzzes"},
		{"show <run-prefix> --category <name>", "one category's leaderboard"},
		{"players", "overall records summed across runs"},
		{"diag <run-prefix>", "warnings recorded for a run"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Fprint(out, "  ")
		cCmd.Fprintf(out, "%-38s", r.cmd)
		fmt.Fprintln(out, r.desc)
	}
	fmt.Fprintln(out)
}

func shellList(db *storage.DB, out io.Writer) {
	runs, err := db.ListRuns()
	if err != nil {
		cError.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cMuted.Fprintln(out, "No runs stored yet.")
		return
	}
	printRuns(out, runs)
}

func shellShow(db *storage.DB, out io.Writer, prefix string, cat model.Category, player model.PlayerName) {
	m, run, err := loadRunModel(db, prefix, cfg.TopBuzzes)
	if err != nil {
		cError.Fprintf(out, "error: %v\n", err)
		return
	}
	if run == nil {
		fmt.Fprintf(out, "no run found with prefix %q\n", prefix)
		return
	}
	if cat != "" || player != "" {
		printFiltered(out, m, cat, player)
		return
	}
	report.Print(out, m)
}

func shellPlayers(db *storage.DB, out io.Writer) {
	totals, err := db.PlayerTotals()
	if err != nil {
		cError.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(totals) == 0 {
		cMuted.Fprintln(out, "No players stored yet.")
		return
	}
	printPlayerTotals(out, totals)
}

func shellDiag(db *storage.DB, out io.Writer, prefix string) {
	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		cError.Fprintf(out, "error: %v\n", err)
		return
	}
	if run == nil {
		fmt.Fprintf(out, "no run found with prefix %q\n", prefix)
		return
	}
	if err := printStoredDiagnostics(out, db, run.ID); err != nil {
		cError.Fprintf(out, "error: %v\n", err)
	}
}
