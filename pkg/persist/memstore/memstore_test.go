package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
)

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, "doc", "hello"); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if text, ok, _ := s.LoadSnapshot(ctx, "doc"); !ok || text != "hello" {
		t.Errorf("LoadSnapshot = %q, %v", text, ok)
	}

	vs := []persist.Version{{ID: "a", Content: "x"}}
	if err := s.SaveVersions(ctx, "doc", vs); err != nil {
		t.Fatalf("SaveVersions: %v", err)
	}
	vs[0].Content = "mutated"
	got, _ := s.LoadVersions(ctx, "doc")
	if got[0].Content != "x" {
		t.Error("store shares the caller's slice")
	}
}

func TestQuotaRejectsWithoutChange(t *testing.T) {
	t.Parallel()

	s := memstore.New(memstore.WithQuota(10))
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, "doc", "12345"); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.SaveSnapshot(ctx, "doc", "12345678901"); !errors.Is(err, persist.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if text, _, _ := s.LoadSnapshot(ctx, "doc"); text != "12345" {
		t.Errorf("snapshot changed by rejected write: %q", text)
	}
}
