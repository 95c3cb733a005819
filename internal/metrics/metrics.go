// Package metrics records per-run Prometheus counters and writes them as a
// node-exporter textfile.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// ErrNoPath is returned by WriteTextfile when no output path is given.
var ErrNoPath = errors.New("metrics: no textfile path")

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(r *Recorder) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithConstLabels attaches fixed labels, e.g. the tournament name, to
// every metric.
func WithConstLabels(labels map[string]string) Option {
	return func(r *Recorder) {
		if len(labels) > 0 {
			r.constLabels = labels
		}
	}
}

// Recorder owns a private registry so runs never leak into the default one.
type Recorder struct {
	namespace   string
	constLabels prometheus.Labels
	registry    *prometheus.Registry

	matchesLoaded  prometheus.Counter
	matchesSkipped *prometheus.CounterVec
	questions      prometheus.Counter
	buzzes         *prometheus.CounterVec
	diagnostics    *prometheus.CounterVec
	players        prometheus.Gauge
	categories     prometheus.Gauge
	stageDuration  *prometheus.HistogramVec
}

// New returns a recorder with all metrics registered.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "qbmetrics",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.matchesLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   r.namespace,
		Name:        "matches_loaded_total",
		Help:        "Matches ingested with their packet.",
		ConstLabels: r.constLabels,
	})
	r.matchesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   r.namespace,
		Name:        "matches_skipped_total",
		Help:        "Match files skipped, by diagnostic code.",
		ConstLabels: r.constLabels,
	}, []string{"code"})
	r.questions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   r.namespace,
		Name:        "tossups_processed_total",
		Help:        "Match questions folded into the tournament.",
		ConstLabels: r.constLabels,
	})
	r.buzzes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   r.namespace,
		Name:        "buzzes_total",
		Help:        "Recorded buzzes by result.",
		ConstLabels: r.constLabels,
	}, []string{"result"})
	r.diagnostics = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   r.namespace,
		Name:        "diagnostics_total",
		Help:        "Diagnostics raised during the run.",
		ConstLabels: r.constLabels,
	}, []string{"kind", "code"})
	r.players = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   r.namespace,
		Name:        "players",
		Help:        "Players registered in the tournament.",
		ConstLabels: r.constLabels,
	})
	r.categories = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   r.namespace,
		Name:        "categories",
		Help:        "Categories, synthetic included.",
		ConstLabels: r.constLabels,
	})
	r.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   r.namespace,
		Name:        "stage_duration_seconds",
		Help:        "Wall time of each run stage.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: r.constLabels,
	}, []string{"stage"})
	return r
}

// Registry exposes the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// MatchLoaded counts one ingested match.
func (r *Recorder) MatchLoaded() { r.matchesLoaded.Inc() }

// MatchSkipped counts one skipped match file.
func (r *Recorder) MatchSkipped(code string) { r.matchesSkipped.WithLabelValues(code).Inc() }

// Tossups adds n processed tossups.
func (r *Recorder) Tossups(n int) { r.questions.Add(float64(n)) }

// Buzz counts one buzz by its point value.
func (r *Recorder) Buzz(points int) { r.buzzes.WithLabelValues(buzzResult(points)).Inc() }

func buzzResult(points int) string {
	switch points {
	case model.PointsPower:
		return "power"
	case model.PointsTen:
		return "ten"
	case model.PointsNeg:
		return "neg"
	case model.PointsNone:
		return "no_penalty"
	default:
		return "other"
	}
}

// Diagnostic counts d.
func (r *Recorder) Diagnostic(d diag.Diagnostic) {
	r.diagnostics.WithLabelValues(d.Kind.String(), d.Code).Inc()
}

// Totals sets the tournament size gauges.
func (r *Recorder) Totals(players, categories int) {
	r.players.Set(float64(players))
	r.categories.Set(float64(categories))
}

// Stage observes how long a run stage took since start.
func (r *Recorder) Stage(name string, start time.Time) {
	r.stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return ErrNoPath
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
