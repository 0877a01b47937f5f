package persist

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// GuardOption is a functional option for configuring a [Guard].
type GuardOption func(*Guard)

// WithQuotaWarning sets the callback invoked the first time a quota error is
// hit. It is called at most once per Guard.
func WithQuotaWarning(fn func(error)) GuardOption {
	return func(g *Guard) {
		g.onQuota = fn
	}
}

// WithErrorHook sets a callback invoked for every swallowed failure, for
// example to count storage errors.
func WithErrorHook(fn func(op string, err error)) GuardOption {
	return func(g *Guard) {
		g.onError = fn
	}
}

// WithVersionsShed sets a callback invoked with the versions the guard
// removed from storage to make room, after the smaller history was saved.
// Callers holding the same history in memory drop them too.
func WithVersionsShed(fn func(docID string, dropped []Version)) GuardOption {
	return func(g *Guard) {
		g.onShed = fn
	}
}

// WithMinVersions sets how many of the newest versions are kept when the
// guard sheds history to recover from a quota error. Default: 1.
func WithMinVersions(n int) GuardOption {
	return func(g *Guard) {
		if n >= 0 {
			g.minVersions = n
		}
	}
}

// Guard wraps a [Gateway] and makes every operation non-fatal. Quota errors
// are answered by dropping the oldest versions (history is the non-essential
// part of the state) and retrying once; the user is warned once per guard.
// Other failures are logged, the guard is marked degraded, and load methods
// fall back to empty results. The in-memory document is never affected.
//
// Guard implements [Gateway]. All methods are safe for concurrent use.
type Guard struct {
	store       Gateway
	onQuota     func(error)
	onError     func(op string, err error)
	onShed      func(docID string, dropped []Version)
	minVersions int

	degraded atomic.Bool
	warnOnce sync.Once
}

var _ Gateway = (*Guard)(nil)

// NewGuard wraps store.
func NewGuard(store Gateway, opts ...GuardOption) *Guard {
	g := &Guard{store: store, minVersions: 1}
	for _, o := range opts {
		o(g)
	}
	return g
}

// IsDegraded reports whether the most recent operation on the underlying
// store failed.
func (g *Guard) IsDegraded() bool { return g.degraded.Load() }

// Unwrap returns the wrapped gateway.
func (g *Guard) Unwrap() Gateway { return g.store }

// SaveSnapshot saves the snapshot. On a quota error the stored version
// history is trimmed to make room and the save is retried once.
func (g *Guard) SaveSnapshot(ctx context.Context, docID, text string) error {
	err := g.store.SaveSnapshot(ctx, docID, text)
	if errors.Is(err, ErrQuotaExceeded) {
		g.warnQuota(err)
		if g.shedStoredVersions(ctx, docID) {
			err = g.store.SaveSnapshot(ctx, docID, text)
		}
	}
	g.settle("SaveSnapshot", docID, err)
	return nil
}

// LoadSnapshot returns ok == false when the store fails.
func (g *Guard) LoadSnapshot(ctx context.Context, docID string) (string, bool, error) {
	text, ok, err := g.store.LoadSnapshot(ctx, docID)
	g.settle("LoadSnapshot", docID, err)
	if err != nil {
		return "", false, nil
	}
	return text, ok, nil
}

// SaveVersions saves versions, dropping the oldest ones and retrying once if
// the store reports a quota error.
func (g *Guard) SaveVersions(ctx context.Context, docID string, versions []Version) error {
	err := g.store.SaveVersions(ctx, docID, versions)
	if errors.Is(err, ErrQuotaExceeded) {
		g.warnQuota(err)
		if trimmed := g.shed(versions); len(trimmed) < len(versions) {
			if err = g.store.SaveVersions(ctx, docID, trimmed); err == nil {
				g.reportShed(docID, versions[:len(versions)-len(trimmed)])
			}
		}
	}
	g.settle("SaveVersions", docID, err)
	return nil
}

// LoadVersions returns an empty history when the store fails.
func (g *Guard) LoadVersions(ctx context.Context, docID string) ([]Version, error) {
	vs, err := g.store.LoadVersions(ctx, docID)
	g.settle("LoadVersions", docID, err)
	if err != nil {
		return []Version{}, nil
	}
	return vs, nil
}

// SaveSpeakers saves the registry. On a quota error the version history is
// trimmed and the save retried once.
func (g *Guard) SaveSpeakers(ctx context.Context, docID string, speakers map[string]Speaker) error {
	err := g.store.SaveSpeakers(ctx, docID, speakers)
	if errors.Is(err, ErrQuotaExceeded) {
		g.warnQuota(err)
		if g.shedStoredVersions(ctx, docID) {
			err = g.store.SaveSpeakers(ctx, docID, speakers)
		}
	}
	g.settle("SaveSpeakers", docID, err)
	return nil
}

// LoadSpeakers returns an empty registry when the store fails.
func (g *Guard) LoadSpeakers(ctx context.Context, docID string) (map[string]Speaker, error) {
	sp, err := g.store.LoadSpeakers(ctx, docID)
	g.settle("LoadSpeakers", docID, err)
	if err != nil {
		return map[string]Speaker{}, nil
	}
	return sp, nil
}

// Ping is not guarded: readiness checks need the real answer.
func (g *Guard) Ping(ctx context.Context) error { return g.store.Ping(ctx) }

// Close closes the wrapped store.
func (g *Guard) Close() error { return g.store.Close() }

// shed drops the oldest half of versions, keeping at least minVersions.
func (g *Guard) shed(versions []Version) []Version {
	keep := max(g.minVersions, len(versions)/2)
	if keep >= len(versions) {
		return versions
	}
	// Versions are stored oldest first.
	return slices.Clone(versions[len(versions)-keep:])
}

func (g *Guard) shedStoredVersions(ctx context.Context, docID string) bool {
	vs, err := g.store.LoadVersions(ctx, docID)
	if err != nil {
		return false
	}
	trimmed := g.shed(vs)
	if len(trimmed) == len(vs) {
		return false
	}
	if g.store.SaveVersions(ctx, docID, trimmed) != nil {
		return false
	}
	g.reportShed(docID, vs[:len(vs)-len(trimmed)])
	return true
}

func (g *Guard) reportShed(docID string, dropped []Version) {
	slog.Info("persist guard: dropped oldest versions to fit the quota",
		"doc_id", docID,
		"dropped", len(dropped),
	)
	if g.onShed != nil {
		g.onShed(docID, slices.Clone(dropped))
	}
}

func (g *Guard) warnQuota(err error) {
	g.warnOnce.Do(func() {
		if g.onQuota != nil {
			g.onQuota(err)
		}
	})
}

func (g *Guard) settle(op, docID string, err error) {
	if err == nil {
		g.degraded.Store(false)
		return
	}
	g.degraded.Store(true)
	slog.Warn("persist guard: operation failed, swallowing error",
		"op", op,
		"doc_id", docID,
		"err", err,
	)
	if g.onError != nil {
		g.onError(op, err)
	}
}
