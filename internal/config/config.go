// Package config provides the configuration schema and loader for the scribe
// transcript editor service.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Backend selects the persistence implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendBolt     Backend = "bolt"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// IsValid reports whether b is a recognised storage backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendMemory, BackendBolt, BackendSQLite, BackendPostgres:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Editor  EditorConfig  `yaml:"editor"`
}

// ServerConfig holds network, logging and telemetry settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFormat selects text or JSON log output. Default: text.
	LogFormat LogFormat `yaml:"log_format"`

	// Metrics enables the Prometheus /metrics endpoint. Default: true.
	Metrics *bool `yaml:"metrics"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsEnabled reports whether /metrics should be served.
func (s ServerConfig) MetricsEnabled() bool {
	return s.Metrics == nil || *s.Metrics
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of memory, bolt, sqlite, postgres. Default: bolt.
	Backend Backend `yaml:"backend"`

	// Path is the database file for bolt and sqlite.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// QuotaBytes caps the stored bytes per document. Zero means unlimited.
	QuotaBytes int `yaml:"quota_bytes"`

	// BreakerFailures is the number of consecutive postgres failures after
	// which storage calls fail fast. Default: 5.
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerReset is how long storage calls fail fast before the database
	// is probed again. Default: 30s.
	BreakerReset time.Duration `yaml:"breaker_reset"`
}

// EditorConfig holds the editing behaviour shared by all sessions. Every
// field can be hot-reloaded.
type EditorConfig struct {
	// CapitalizeInterval is the period of the automatic capitalization pass.
	// Zero disables it. Default: 30s.
	CapitalizeInterval time.Duration `yaml:"capitalize_interval"`

	// AutosaveInterval is the period of automatic version snapshots.
	// Zero disables it. Default: 5m.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	// ValidationDebounce delays windowed re-validation after edits and
	// scrolling. Default: 300ms.
	ValidationDebounce time.Duration `yaml:"validation_debounce"`

	// SnapshotDebounce delays the snapshot save after edits. Default: 2s.
	SnapshotDebounce time.Duration `yaml:"snapshot_debounce"`

	// ContinuousValidation starts sessions with live validation on.
	ContinuousValidation bool `yaml:"continuous_validation"`

	// ViewportBuffer is the validated margin around the visible part of the
	// document, as a fraction of the visible share. Default: 0.5.
	ViewportBuffer float64 `yaml:"viewport_buffer"`

	// SnippetCount is the number of snippets listed per speaker. Default: 3.
	SnippetCount int `yaml:"snippet_count"`

	// MaxVersions caps the version history. Default: 50.
	MaxVersions int `yaml:"max_versions"`

	// TranscriptSuggestions adds document words to the suggestion pool.
	// Default: true.
	TranscriptSuggestions *bool `yaml:"transcript_suggestions"`

	// SuggestionLimit caps the suggestions offered. Default: 5.
	SuggestionLimit int `yaml:"suggestion_limit"`

	// Fillers are removed by the filler-removal transformation.
	Fillers []string `yaml:"fillers"`

	// ActiveListeningCues are the acknowledgements removed by the
	// active-listening transformation.
	ActiveListeningCues []string `yaml:"active_listening_cues"`

	// Phrases replace the built-in suggestion phrases when set.
	Phrases []string `yaml:"phrases"`

	// Shortcuts replace the built-in two-letter bracket shortcuts when set.
	Shortcuts map[string]string `yaml:"shortcuts"`
}

// SuggestFromTranscript reports whether document words feed suggestions.
func (e EditorConfig) SuggestFromTranscript() bool {
	return e.TranscriptSuggestions == nil || *e.TranscriptSuggestions
}

// Default filler words and active-listening cues.
var (
	DefaultFillers = []string{"um", "uh", "er", "ah", "hmm", "uh-huh", "mm"}

	DefaultActiveListeningCues = []string{
		"okay.", "ok.", "yeah.", "yes.", "yep.", "uh-huh.", "mm-hmm.", "mhm.",
		"right.", "sure.", "got it.", "I see.", "alright.", "all right.",
	}
)

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = LogFormatText
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendBolt
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Backend {
		case BackendBolt:
			cfg.Storage.Path = "scribe.db"
		case BackendSQLite:
			cfg.Storage.Path = "scribe.sqlite"
		}
	}

	e := &cfg.Editor
	if e.CapitalizeInterval == 0 {
		e.CapitalizeInterval = 30 * time.Second
	}
	if e.AutosaveInterval == 0 {
		e.AutosaveInterval = 5 * time.Minute
	}
	if e.ValidationDebounce == 0 {
		e.ValidationDebounce = 300 * time.Millisecond
	}
	if e.SnapshotDebounce == 0 {
		e.SnapshotDebounce = 2 * time.Second
	}
	if e.ViewportBuffer == 0 {
		e.ViewportBuffer = 0.5
	}
	if e.SnippetCount == 0 {
		e.SnippetCount = 3
	}
	if e.MaxVersions == 0 {
		e.MaxVersions = 50
	}
	if e.SuggestionLimit == 0 {
		e.SuggestionLimit = 5
	}
	if e.Fillers == nil {
		e.Fillers = append([]string(nil), DefaultFillers...)
	}
	if e.ActiveListeningCues == nil {
		e.ActiveListeningCues = append([]string(nil), DefaultActiveListeningCues...)
	}
}
