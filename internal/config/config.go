// Package config defines service configuration structures and loading.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// DatabasePath is the sqlite file backing the session store.
	// Empty selects the in-memory store.
	DatabasePath string `koanf:"database_path"`

	// BlobDir is the root directory of the filesystem blob store.
	BlobDir string `koanf:"blob_dir"`

	// BlobURLSecret signs playback URLs issued by the blob store.
	BlobURLSecret string `koanf:"blob_url_secret"`

	// BlobURLTTL bounds how long a signed playback URL stays valid.
	BlobURLTTL time.Duration `koanf:"blob_url_ttl"`

	// ClassifierEndpoint is the stutter classifier HTTP endpoint.
	// Empty selects the built-in stub classifier.
	ClassifierEndpoint string `koanf:"classifier_endpoint"`

	// ClassifierTimeout bounds a single classifier call.
	ClassifierTimeout time.Duration `koanf:"classifier_timeout"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// CategoryKeywords overrides the label-matching keyword sets used by
	// the analysis normalizer, keyed by category name.
	CategoryKeywords map[string][]string `koanf:"category_keywords"`

	// WaveformBuckets sets the length of the amplitude envelope computed
	// for each recording.
	WaveformBuckets int `koanf:"waveform_buckets"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8090",
		DatabasePath:      "",
		BlobDir:           "data/blobs",
		BlobURLSecret:     "",
		BlobURLTTL:        15 * time.Minute,
		ClassifierTimeout: 60 * time.Second,
		QueueSize:         1024,
		WorkerCount:       4,
		WaveformBuckets:   96,
	}
}
