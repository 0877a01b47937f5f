package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/scribe/pkg/persist"
)

// Gateway runs every storage call of the wrapped backend through a
// [Breaker]. Quota errors are answers, not outages, and never open it.
type Gateway struct {
	store   persist.Gateway
	breaker *Breaker
}

var _ persist.Gateway = (*Gateway)(nil)

// WrapGateway guards store with a breaker built from cfg. cfg.Counts is
// replaced.
func WrapGateway(store persist.Gateway, cfg BreakerConfig) *Gateway {
	cfg.Counts = isOutage
	return &Gateway{store: store, breaker: NewBreaker(cfg)}
}

func isOutage(err error) bool {
	return err != nil && !errors.Is(err, persist.ErrQuotaExceeded) && !errors.Is(err, context.Canceled)
}

// Breaker returns the breaker, e.g. to report its state.
func (g *Gateway) Breaker() *Breaker { return g.breaker }

// SaveSnapshot implements [persist.Gateway].
func (g *Gateway) SaveSnapshot(ctx context.Context, docID, text string) error {
	return g.breaker.Do(func() error { return g.store.SaveSnapshot(ctx, docID, text) })
}

// LoadSnapshot implements [persist.Gateway].
func (g *Gateway) LoadSnapshot(ctx context.Context, docID string) (text string, ok bool, err error) {
	err = g.breaker.Do(func() error {
		var e error
		text, ok, e = g.store.LoadSnapshot(ctx, docID)
		return e
	})
	return text, ok, err
}

// SaveVersions implements [persist.Gateway].
func (g *Gateway) SaveVersions(ctx context.Context, docID string, versions []persist.Version) error {
	return g.breaker.Do(func() error { return g.store.SaveVersions(ctx, docID, versions) })
}

// LoadVersions implements [persist.Gateway].
func (g *Gateway) LoadVersions(ctx context.Context, docID string) (vs []persist.Version, err error) {
	err = g.breaker.Do(func() error {
		var e error
		vs, e = g.store.LoadVersions(ctx, docID)
		return e
	})
	return vs, err
}

// SaveSpeakers implements [persist.Gateway].
func (g *Gateway) SaveSpeakers(ctx context.Context, docID string, speakers map[string]persist.Speaker) error {
	return g.breaker.Do(func() error { return g.store.SaveSpeakers(ctx, docID, speakers) })
}

// LoadSpeakers implements [persist.Gateway].
func (g *Gateway) LoadSpeakers(ctx context.Context, docID string) (sp map[string]persist.Speaker, err error) {
	err = g.breaker.Do(func() error {
		var e error
		sp, e = g.store.LoadSpeakers(ctx, docID)
		return e
	})
	return sp, err
}

// Ping bypasses the breaker; readiness needs the backend's own answer.
func (g *Gateway) Ping(ctx context.Context) error { return g.store.Ping(ctx) }

// Close implements [persist.Gateway].
func (g *Gateway) Close() error { return g.store.Close() }
