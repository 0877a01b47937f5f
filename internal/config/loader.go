package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}

	// Storage
	st := cfg.Storage
	if st.Backend != "" && !st.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, bolt, sqlite, postgres", st.Backend))
	}
	switch st.Backend {
	case BackendBolt, BackendSQLite:
		if st.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required when backend is %s", st.Backend))
		}
	case BackendPostgres:
		if st.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required when backend is postgres"))
		}
	case BackendMemory:
		slog.Warn("storage.backend is memory; sessions will not survive a restart")
	}
	if st.QuotaBytes < 0 {
		errs = append(errs, fmt.Errorf("storage.quota_bytes %d must not be negative", st.QuotaBytes))
	}
	if st.BreakerFailures < 0 || st.BreakerReset < 0 {
		errs = append(errs, errors.New("storage.breaker_failures and storage.breaker_reset must not be negative"))
	}

	// Editor
	e := cfg.Editor
	for name, d := range map[string]int64{
		"capitalize_interval": int64(e.CapitalizeInterval),
		"autosave_interval":   int64(e.AutosaveInterval),
		"validation_debounce": int64(e.ValidationDebounce),
		"snapshot_debounce":   int64(e.SnapshotDebounce),
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("editor.%s must not be negative", name))
		}
	}
	if e.ViewportBuffer < 0 || e.ViewportBuffer > 10 {
		errs = append(errs, fmt.Errorf("editor.viewport_buffer %.2f is out of range [0, 10]", e.ViewportBuffer))
	}
	if e.SnippetCount < 0 {
		errs = append(errs, fmt.Errorf("editor.snippet_count %d must not be negative", e.SnippetCount))
	}
	if e.MaxVersions < 0 {
		errs = append(errs, fmt.Errorf("editor.max_versions %d must not be negative", e.MaxVersions))
	}
	if e.SuggestionLimit < 0 {
		errs = append(errs, fmt.Errorf("editor.suggestion_limit %d must not be negative", e.SuggestionLimit))
	}
	for code, tag := range e.Shortcuts {
		if utf8.RuneCountInString(code) != 2 {
			errs = append(errs, fmt.Errorf("editor.shortcuts: code %q must be exactly two characters", code))
		}
		if tag == "" {
			errs = append(errs, fmt.Errorf("editor.shortcuts: code %q has an empty tag", code))
		}
	}
	if e.AutosaveInterval > 0 && e.MaxVersions == 1 {
		slog.Warn("editor.max_versions is 1; every autosave replaces the previous version")
	}

	return errors.Join(errs...)
}
