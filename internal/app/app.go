// Package app wires the scribe subsystems into a running application.
//
// The App struct owns the full lifecycle: New opens the storage backend
// selected in the config and creates the session manager, Reload applies
// hot-reloaded configuration, and Shutdown flushes every open session and
// closes the backend in order.
//
// For testing, inject a store via [WithStore]. When no store is provided,
// New opens the backend named by storage.backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/resilience"
	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/bolt"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
	"github.com/MrWong99/scribe/pkg/persist/postgres"
	"github.com/MrWong99/scribe/pkg/persist/sqlite"
)

// App owns all subsystem lifetimes.
type App struct {
	cfgMu    sync.RWMutex
	cfg      *config.Config
	store    persist.Gateway
	metrics  *observe.Metrics
	sessions *SessionManager

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a storage backend instead of opening one from config.
// The injected store is not closed on Shutdown.
func WithStore(s persist.Gateway) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics records session, command and storage metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App from cfg. Use Option functions to inject test doubles.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.store == nil {
		store, err := OpenStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("app: init storage: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	a.sessions = NewSessionManager(SessionManagerConfig{
		Store:    a.store,
		Settings: editor.SettingsFromConfig(cfg.Editor),
		Metrics:  a.metrics,
	})

	slog.Info("app initialised", "backend", cfg.Storage.Backend)
	return a, nil
}

// OpenStore opens the storage backend described by sc.
func OpenStore(ctx context.Context, sc config.StorageConfig) (persist.Gateway, error) {
	switch sc.Backend {
	case config.BackendMemory:
		return memstore.New(memstore.WithQuota(sc.QuotaBytes)), nil
	case config.BackendBolt:
		s, err := bolt.Open(sc.Path, bolt.WithQuota(sc.QuotaBytes))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, sc.Path, sqlite.WithQuota(sc.QuotaBytes))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		if sc.DSN == "" {
			return nil, errors.New("storage.dsn is required for the postgres backend")
		}
		s, err := postgres.Open(ctx, sc.DSN, postgres.WithQuota(sc.QuotaBytes))
		if err != nil {
			return nil, err
		}
		return resilience.WrapGateway(s, resilience.BreakerConfig{
			Name:         "postgres",
			MaxFailures:  sc.BreakerFailures,
			ResetTimeout: sc.BreakerReset,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Store returns the storage backend.
func (a *App) Store() persist.Gateway { return a.store }

// Config returns the configuration the app currently runs with.
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Reload applies a hot-reloaded configuration. Only the editor section is
// applied live; storage and listen address changes need a restart.
func (a *App) Reload(_, new *config.Config, d config.ConfigDiff) {
	a.cfgMu.Lock()
	a.cfg = new
	a.cfgMu.Unlock()
	if d.RestartRequired {
		slog.Warn("server or storage config changed, restart to apply")
	}
	if d.EditorChanged {
		a.sessions.ApplySettings(editor.SettingsFromConfig(new.Editor))
	}
}

// Shutdown flushes every open session and then closes the storage backend.
// It respects the context deadline: if ctx expires before all closers
// finish, remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", a.sessions.Len(), "closers", len(a.closers))

		if err := a.sessions.CloseAll(ctx); err != nil {
			slog.Warn("session flush error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
