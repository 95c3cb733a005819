// Package config holds qbmetrics settings, layered from built-in defaults,
// an optional YAML file and QBM_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// EnvPrefix prefixes every environment override, e.g. QBM_WORKERS.
const EnvPrefix = "QBM_"

// EnvConfigFile names the environment variable holding a config file path.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log record encoding.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// DBPath is the SQLite run store.
	DBPath string `koanf:"db" validate:"required"`

	// PacketDirs are searched for packet files after the match file's own directory.
	PacketDirs []string `koanf:"packet_dirs"`

	// TaxonomyFile replaces the embedded category taxonomy when set.
	TaxonomyFile string `koanf:"taxonomy_file"`

	// Workers bounds concurrent file decoding and ingestion.
	Workers int `koanf:"workers" validate:"min=1,max=256"`

	// TopBuzzes is the length of each earliest-buzz board; 0 lists all.
	TopBuzzes int `koanf:"top_buzzes" validate:"min=0"`

	// Store persists every ingest run to DBPath.
	Store bool `koanf:"store"`

	// MetricsOut, when set, receives a Prometheus textfile per run.
	MetricsOut string `koanf:"metrics_out"`

	// SimilarDistance is the Levenshtein distance within which two category
	// labels are reported as near duplicates. With 0 only labels differing
	// in case are reported.
	SimilarDistance int `koanf:"similar_distance" validate:"min=0,max=8"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		DBPath:          DefaultDBPath(),
		Workers:         runtime.NumCPU(),
		TopBuzzes:       10,
		Store:           true,
		SimilarDistance: 1,
	}
}

// DefaultDBPath is ~/.qbmetrics/runs.db, or ./runs.db when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "runs.db"
	}
	return filepath.Join(home, ".qbmetrics", "runs.db")
}
