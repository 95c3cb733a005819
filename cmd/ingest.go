package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-qb-metrics/internal/aggregator"
	"github.com/pable/go-qb-metrics/internal/category"
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/logger"
	"github.com/pable/go-qb-metrics/internal/metrics"
	"github.com/pable/go-qb-metrics/internal/model"
	"github.com/pable/go-qb-metrics/internal/qbj"
	"github.com/pable/go-qb-metrics/internal/report"
	"github.com/pable/go-qb-metrics/internal/storage"
)

var (
	ingestTop        int
	ingestJSON       bool
	ingestNoStore    bool
	ingestMetricsOut string
	ingestTaxonomy   string
	ingestPackets    []string
	ingestWorkers    int
	ingestCategory   string
	ingestPlayer     string
)

var errNoInput = errors.New("qbmetrics: no input files")

var ingestCmd = &cobra.Command{
	Use:   "ingest <tournament> <match.qbj>...",
	Short: "Merge .qbj match files with their packets and print leaderboards",
	Long: `Load each .qbj match record, find the packet it names (<packets>.json next to
the match file, then in --packets directories, then the working directory),
and accumulate per-player category statistics for the whole tournament.

Matches whose packet is missing or whose files do not decode are skipped
with a warning. The run is stored in the database unless --no-store is given.

Example:
  qbmetrics ingest "Fall Open" round1/*.qbj --packets ./packets --top 5`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return fmt.Errorf("%w\nTry running `%s ingest \"Tournament\" round1.qbj round2.qbj ...`",
				errNoInput, cmd.Root().Name())
		}
		return nil
	},
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.IntVar(&ingestTop, "top", -1, "earliest buzzes listed per player, 0 for all (default from config)")
	f.BoolVar(&ingestJSON, "json", false, "write the report model as JSON instead of tables")
	f.BoolVar(&ingestNoStore, "no-store", false, "do not save this run to the database")
	f.StringVar(&ingestMetricsOut, "metrics-out", "", "write run counters to this Prometheus textfile")
	f.StringVar(&ingestTaxonomy, "taxonomy", "", "category taxonomy YAML (default: built in)")
	f.StringSliceVar(&ingestPackets, "packets", nil, "extra directories searched for packet files")
	f.IntVar(&ingestWorkers, "workers", 0, "concurrent decode/ingest workers (default from config)")
	f.StringVar(&ingestCategory, "category", "", "only print this category's leaderboard")
	f.StringVar(&ingestPlayer, "player", "", "only print this player's breakdown")
}

// ingestOptions are the effective settings of one ingest run after flags
// are layered over config.
type ingestOptions struct {
	Tournament string
	Paths      []string
	PacketDirs []string
	Taxonomy   string
	Workers    int
	Top        int
	Similar    int
}

// ingestResult is everything an ingest run produced.
type ingestResult struct {
	Tournament *aggregator.Tournament
	Taxonomy   category.Taxonomy
	Diags      *diag.Collector
	Metrics    *metrics.Recorder
	Model      report.Model
	Loaded     int
}

func runIngest(cmd *cobra.Command, args []string) error {
	opts := ingestOptions{
		Tournament: args[0],
		Paths:      args[1:],
		PacketDirs: append(append([]string(nil), cfg.PacketDirs...), ingestPackets...),
		Taxonomy:   cfg.TaxonomyFile,
		Workers:    cfg.Workers,
		Top:        cfg.TopBuzzes,
		Similar:    cfg.SimilarDistance,
	}
	if ingestTaxonomy != "" {
		opts.Taxonomy = ingestTaxonomy
	}
	if ingestWorkers > 0 {
		opts.Workers = ingestWorkers
	}
	if ingestTop >= 0 {
		opts.Top = ingestTop
	}

	log := logger.Named("ingest")
	res, err := ingest(cmd.Context(), opts, os.Stdout, log)
	if err != nil {
		return err
	}

	switch {
	case ingestJSON:
		if err := report.WriteJSON(os.Stdout, res.Model); err != nil {
			return err
		}
	case ingestCategory != "" || ingestPlayer != "":
		printFiltered(os.Stdout, res.Model, model.Category(ingestCategory), model.PlayerName(ingestPlayer))
	default:
		report.Print(os.Stdout, res.Model)
	}
	printDiagnosticSummary(os.Stderr, res.Diags)

	if cfg.Store && !ingestNoStore {
		start := time.Now()
		run, err := storeRun(opts.Tournament, res)
		if err != nil {
			return err
		}
		res.Metrics.Stage("store", start)
		cMuted.Fprintf(os.Stderr, "stored run %s in %s\n", shortID(run.ID), dbPath)
	}

	out := ingestMetricsOut
	if out == "" {
		out = cfg.MetricsOut
	}
	if out != "" {
		if err := res.Metrics.WriteTextfile(out); err != nil {
			return err
		}
	}
	return nil
}

// ingest loads, aggregates and builds the report model. Progress lines go
// to w.
func ingest(ctx context.Context, opts ingestOptions, w io.Writer, log logger.Logger) (*ingestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tax, err := category.Load(opts.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	rec := metrics.New(metrics.WithConstLabels(map[string]string{"tournament": opts.Tournament}))
	diags := diag.NewCollector(func(d diag.Diagnostic) {
		rec.Diagnostic(d)
		log.Warn(ctx, d.Message, diagFields(d)...)
	})

	start := time.Now()
	loader := qbj.NewLoader(opts.PacketDirs, opts.Workers)
	results, err := loader.LoadAll(ctx, opts.Paths)
	if err != nil {
		return nil, err
	}
	var pairs []aggregator.Pair
	for _, r := range results {
		if r.Err != nil {
			code := skipMatch(diags, r)
			rec.MatchSkipped(code)
			continue
		}
		log.Debug(ctx, "loaded match", logger.String("match", r.Path), logger.String("packet", r.PacketPath))
		pairs = append(pairs, aggregator.Pair{Match: r.Match, Bank: r.Bank})
		rec.MatchLoaded()
		for _, q := range r.Match.Questions {
			for _, b := range q.Buzzes {
				rec.Buzz(b.Points)
			}
		}
	}
	rec.Stage("load", start)
	fmt.Fprintf(w, "=> Loaded %d QBJ files\n", len(pairs))
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no matches loaded from %d file(s)", len(opts.Paths))
	}

	start = time.Now()
	tour := aggregator.New(category.NewNormalizer(tax), diags)
	if err := aggregator.IngestAll(ctx, tour, pairs, opts.Workers); err != nil {
		return nil, err
	}
	reportSimilarLabels(diags, tour, opts.Similar)
	tour.Rollup(tax.Rollups)
	rec.Tossups(len(tour.Tossups()))
	rec.Totals(len(tour.Players()), len(tour.Categories()))
	rec.Stage("aggregate", start)

	m := report.Build(opts.Tournament, len(pairs), tour, tax.Priority(), opts.Top, diags)
	return &ingestResult{
		Tournament: tour,
		Taxonomy:   tax,
		Diags:      diags,
		Metrics:    rec,
		Model:      m,
		Loaded:     len(pairs),
	}, nil
}

// skipMatch records why a match file was skipped and returns the code.
func skipMatch(diags *diag.Collector, r qbj.Loaded) string {
	if errors.Is(r.Err, qbj.ErrPacketNotFound) || errors.Is(r.Err, qbj.ErrNoPacketName) {
		packet := ""
		if r.Match != nil {
			packet = r.Match.Packet
		}
		diags.Add(diag.MissingFile, diag.CodeMissingPacket,
			"no packet found; skipping this match",
			diag.F("match", r.Path),
			diag.F("packet", packet),
			diag.F("error", r.Err.Error()),
		)
		return diag.CodeMissingPacket
	}
	diags.Add(diag.MalformedInput, diag.CodeDecodeFailed,
		"could not load match; skipping",
		diag.F("match", r.Path),
		diag.F("error", r.Err.Error()),
	)
	return diag.CodeDecodeFailed
}

// reportSimilarLabels flags base categories that look like spellings of
// one another.
func reportSimilarLabels(diags *diag.Collector, tour *aggregator.Tournament, maxDistance int) {
	var base []model.Category
	for _, c := range tour.Categories() {
		if !tour.IsSynthetic(c) {
			base = append(base, c)
		}
	}
	for _, p := range category.SimilarLabels(base, maxDistance) {
		diags.Add(diag.Taxonomy, diag.CodeNearDuplicateCategory,
			"categories look alike; consider a rewrite entry",
			diag.F("a", p.A),
			diag.F("b", p.B),
			diag.F("distance", p.Distance),
			diag.F("case_only", p.CaseOnly),
		)
	}
}

func diagFields(d diag.Diagnostic) []logger.Field {
	fields := make([]logger.Field, 0, len(d.Fields)+2)
	fields = append(fields, logger.String("kind", d.Kind.String()), logger.String("code", d.Code))
	for _, f := range d.Fields {
		fields = append(fields, logger.Any(f.Key, f.Value))
	}
	return fields
}

func storeRun(tournament string, res *ingestResult) (storage.Run, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return storage.Run{}, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return storage.Run{}, fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := db.SaveRun(storage.Run{Tournament: tournament, Matches: res.Loaded},
		res.Tournament.Snapshot(), res.Diags.All())
	if err != nil {
		return run, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

func printFiltered(w io.Writer, m report.Model, cat model.Category, player model.PlayerName) {
	report.PrintHeader(w, m)
	if cat != "" {
		report.PrintCategoryBoards(w, m.Categories, cat)
	}
	if player != "" {
		report.PrintPlayerBoards(w, m.Players, player)
		report.PrintEarliestBuzzes(w, m.EarliestBuzzes, player)
	}
}

// printDiagnosticSummary prints one coloured line per diagnostic code.
func printDiagnosticSummary(w io.Writer, diags *diag.Collector) {
	counts := diags.Counts()
	if len(counts) == 0 {
		return
	}
	codes := make([]string, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	cWarn.Fprintf(w, "%d warning(s):\n", diags.Len())
	for _, c := range codes {
		fmt.Fprintf(w, "  %-26s %d\n", c, counts[c])
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
