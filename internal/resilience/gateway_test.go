package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/scribe/internal/resilience"
	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
)

// flakyStore fails every call while down is set and counts the calls that
// reached it.
type flakyStore struct {
	*memstore.Store
	down  atomic.Bool
	calls atomic.Int32
}

func (f *flakyStore) SaveSnapshot(ctx context.Context, docID, text string) error {
	f.calls.Add(1)
	if f.down.Load() {
		return errDown
	}
	return f.Store.SaveSnapshot(ctx, docID, text)
}

func (f *flakyStore) Ping(context.Context) error {
	if f.down.Load() {
		return errDown
	}
	return nil
}

func TestGateway_FailsFastWhileBackendIsDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &clock{now: time.Unix(0, 0)}
	store := &flakyStore{Store: memstore.New()}
	g := resilience.WrapGateway(store, resilience.BreakerConfig{
		Name:         "flaky",
		MaxFailures:  2,
		ResetTimeout: time.Second,
		Now:          c.Now,
	})

	store.down.Store(true)
	for range 2 {
		if err := g.SaveSnapshot(ctx, "doc", "x"); !errors.Is(err, errDown) {
			t.Fatalf("err = %v, want backend error", err)
		}
	}
	if err := g.SaveSnapshot(ctx, "doc", "x"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if n := store.calls.Load(); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
	if err := g.Ping(ctx); !errors.Is(err, errDown) {
		t.Errorf("Ping err = %v, want the backend's answer", err)
	}

	store.down.Store(false)
	c.Advance(time.Second)
	if err := g.SaveSnapshot(ctx, "doc", "restored"); err != nil {
		t.Fatalf("probe save: %v", err)
	}
	if g.Breaker().State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", g.Breaker().State())
	}
	text, ok, err := g.LoadSnapshot(ctx, "doc")
	if err != nil || !ok || text != "restored" {
		t.Errorf("LoadSnapshot = %q, %v, %v", text, ok, err)
	}
}

func TestGateway_QuotaErrorsDoNotOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := resilience.WrapGateway(memstore.New(memstore.WithQuota(4)), resilience.BreakerConfig{MaxFailures: 1})

	for range 3 {
		err := g.SaveVersions(ctx, "doc", []persist.Version{{ID: "v1", Content: "too long to fit"}})
		if !errors.Is(err, persist.ErrQuotaExceeded) {
			t.Fatalf("err = %v, want ErrQuotaExceeded", err)
		}
	}
	if g.Breaker().State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", g.Breaker().State())
	}
	if vs, err := g.LoadVersions(ctx, "doc"); err != nil || len(vs) != 0 {
		t.Errorf("LoadVersions = %v, %v", vs, err)
	}
	if err := g.SaveSpeakers(ctx, "doc", map[string]persist.Speaker{}); err != nil {
		t.Errorf("SaveSpeakers: %v", err)
	}
	if sp, err := g.LoadSpeakers(ctx, "doc"); err != nil || len(sp) != 0 {
		t.Errorf("LoadSpeakers = %v, %v", sp, err)
	}
}
