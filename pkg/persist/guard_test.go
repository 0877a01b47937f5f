package persist_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
)

// failingStore fails every call with err.
type failingStore struct {
	persist.Gateway
	err error
}

func (f failingStore) SaveSnapshot(context.Context, string, string) error { return f.err }
func (f failingStore) LoadVersions(context.Context, string) ([]persist.Version, error) {
	return nil, f.err
}

func versions(n, size int) []persist.Version {
	out := make([]persist.Version, n)
	for i := range out {
		out[i] = persist.Version{ID: fmt.Sprintf("v%d", i), Content: strings.Repeat("x", size)}
	}
	return out
}

func TestGuardShedsVersionsOnQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// Each version costs 2 + 10 + 32 = 44 bytes.
	store := memstore.New(memstore.WithQuota(200))
	var warnings int
	g := persist.NewGuard(store, persist.WithQuotaWarning(func(error) { warnings++ }))

	if err := g.SaveVersions(ctx, "doc", versions(8, 10)); err != nil {
		t.Fatalf("SaveVersions returned %v, guard must swallow", err)
	}
	got, _ := store.LoadVersions(ctx, "doc")
	if len(got) != 4 || got[0].ID != "v4" {
		t.Errorf("stored %d versions starting at %+v, want newest 4", len(got), got)
	}
	if g.IsDegraded() {
		t.Error("guard degraded after successful retry")
	}

	// Snapshot too large for the remaining budget: versions are shed again.
	if err := g.SaveSnapshot(ctx, "doc", strings.Repeat("y", 60)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if text, ok, _ := store.LoadSnapshot(ctx, "doc"); !ok || len(text) != 60 {
		t.Errorf("snapshot not saved after shedding: %q", text)
	}
	if warnings != 1 {
		t.Errorf("quota warnings = %d, want exactly 1", warnings)
	}
}

func TestGuardSwallowsFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	var hooked []string
	g := persist.NewGuard(failingStore{err: boom}, persist.WithErrorHook(func(op string, err error) {
		hooked = append(hooked, op)
	}))
	ctx := context.Background()

	if err := g.SaveSnapshot(ctx, "doc", "x"); err != nil {
		t.Errorf("SaveSnapshot err = %v", err)
	}
	if !g.IsDegraded() {
		t.Error("guard not degraded after failure")
	}
	vs, err := g.LoadVersions(ctx, "doc")
	if err != nil || vs == nil || len(vs) != 0 {
		t.Errorf("LoadVersions = %#v, %v; want empty", vs, err)
	}
	if len(hooked) != 2 {
		t.Errorf("error hook calls = %v", hooked)
	}
}

func TestGuardReportsShedVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(memstore.WithQuota(200))
	var dropped []string
	g := persist.NewGuard(store, persist.WithVersionsShed(func(docID string, vs []persist.Version) {
		if docID != "doc" {
			t.Errorf("shed reported for %q", docID)
		}
		for _, v := range vs {
			dropped = append(dropped, v.ID)
		}
	}))

	_ = g.SaveVersions(ctx, "doc", versions(8, 10))
	if want := []string{"v0", "v1", "v2", "v3"}; !slices.Equal(dropped, want) {
		t.Errorf("dropped after SaveVersions = %v, want %v", dropped, want)
	}

	dropped = nil
	_ = g.SaveSnapshot(ctx, "doc", strings.Repeat("y", 60))
	if want := []string{"v4", "v5"}; !slices.Equal(dropped, want) {
		t.Errorf("dropped after SaveSnapshot = %v, want %v", dropped, want)
	}
	stored, _ := store.LoadVersions(ctx, "doc")
	if len(stored) != 2 || stored[0].ID != "v6" {
		t.Errorf("stored = %+v, want v6 and v7", stored)
	}
}

func TestGuardReportsNothingWhenShedFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// Even a single version does not fit.
	store := memstore.New(memstore.WithQuota(20))
	var calls int
	g := persist.NewGuard(store, persist.WithVersionsShed(func(string, []persist.Version) { calls++ }))

	_ = g.SaveVersions(ctx, "doc", versions(4, 10))
	if calls != 0 {
		t.Errorf("shed hook called %d times although nothing was saved", calls)
	}
	if !g.IsDegraded() {
		t.Error("guard not degraded after the retry failed")
	}
}
