package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/scribe/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
editor:
  snippet_count: 3
`

const watcherUpdatedYAML = `
server:
  log_level: debug
editor:
  snippet_count: 5
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
}

type change struct {
	old, new *config.Config
	diff     config.ConfigDiff
}

func newWatcher(t *testing.T, content string) (*config.Watcher, string, *[]change) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content, time.Now().Add(-time.Hour))
	var changes []change
	w, err := config.NewWatcher(path, func(old, new *config.Config, d config.ConfigDiff) {
		changes = append(changes, change{old, new, d})
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, path, &changes
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _, _ := newWatcher(t, watcherValidYAML)
	cfg := w.Current()
	if cfg == nil || cfg.Server.LogLevel != config.LogInfo {
		t.Fatalf("Current() = %+v", cfg)
	}
	if cfg.Editor.MaxVersions != 50 {
		t.Errorf("defaults not applied: max_versions = %d", cfg.Editor.MaxVersions)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	w, path, changes := newWatcher(t, watcherValidYAML)

	writeFile(t, path, watcherUpdatedYAML, time.Now())
	w.Check()

	if len(*changes) != 1 {
		t.Fatalf("callback calls = %d, want 1", len(*changes))
	}
	c := (*changes)[0]
	if c.old.Server.LogLevel != config.LogInfo || c.new.Server.LogLevel != config.LogDebug {
		t.Errorf("old/new log levels = %q/%q", c.old.Server.LogLevel, c.new.Server.LogLevel)
	}
	if !c.diff.LogLevelChanged || !c.diff.EditorChanged || c.diff.RestartRequired {
		t.Errorf("diff = %+v", c.diff)
	}
	if w.Current().Editor.SnippetCount != 5 {
		t.Errorf("Current() not updated")
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()
	w, path, changes := newWatcher(t, watcherValidYAML)

	writeFile(t, path, watcherInvalidYAML, time.Now())
	w.Check()

	if len(*changes) != 0 {
		t.Errorf("callback fired for invalid config")
	}
	if w.Current().Server.LogLevel != config.LogInfo {
		t.Errorf("Current() replaced by invalid config")
	}
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()
	w, path, changes := newWatcher(t, watcherValidYAML)

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	w.Check()

	if len(*changes) != 0 {
		t.Errorf("callback fired for touch-only change")
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	w, _, _ := newWatcher(t, watcherValidYAML)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
