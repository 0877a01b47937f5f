package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/scribe/internal/app"
	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
)

func testSettings() editor.Settings {
	s := editor.DefaultSettings()
	s.CapitalizeInterval = 0
	s.AutosaveInterval = 0
	s.SnapshotDebounce = time.Hour
	return s
}

func newTestSessionManager(t *testing.T, store persist.Gateway) (*app.SessionManager, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	sm := app.NewSessionManager(app.SessionManagerConfig{
		Store:    store,
		Settings: testSettings(),
		Metrics:  m,
	})
	t.Cleanup(func() { _ = sm.CloseAll(context.Background()) })
	return sm, reader
}

// sum returns the total of an int64 sum metric, optionally restricted to
// data points whose attribute key equals value.
func sum(t *testing.T, reader *sdkmetric.ManualReader, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name != name {
				continue
			}
			data, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not an int64 sum", name)
			}
			for _, dp := range data.DataPoints {
				if key != "" {
					if v, ok := dp.Attributes.Value(attribute.Key(key)); !ok || v.AsString() != value {
						continue
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

// failingStore fails every snapshot save.
type failingStore struct {
	*memstore.Store
}

func (f failingStore) SaveSnapshot(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func TestSessionManager_OpenClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sm, reader := newTestSessionManager(t, memstore.New())

	ed, err := sm.Open(ctx, "", "hello")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if len(ed.ID()) != 36 || strings.Count(ed.ID(), "-") != 4 {
		t.Errorf("generated id = %q, want a UUID", ed.ID())
	}
	if got, ok := sm.Get(ed.ID()); !ok || got != ed {
		t.Error("Get did not return the opened editor")
	}

	if _, err := sm.Open(ctx, ed.ID(), ""); !errors.Is(err, app.ErrSessionExists) {
		t.Errorf("duplicate Open err = %v, want ErrSessionExists", err)
	}
	if _, err := sm.Open(ctx, "b-doc", ""); err != nil {
		t.Fatalf("Open: %v", err)
	}

	infos := sm.List()
	if len(infos) != 2 || (infos[0].ID != "b-doc" && infos[1].ID != "b-doc") {
		t.Errorf("List() = %+v", infos)
	}
	if got := sum(t, reader, "scribe.active_sessions", "", ""); got != 2 {
		t.Errorf("active sessions = %d, want 2", got)
	}

	if err := sm.Close(ctx, "b-doc"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sm.Close(ctx, "b-doc"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("second Close err = %v, want ErrSessionNotFound", err)
	}
	if got := sum(t, reader, "scribe.active_sessions", "", ""); got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}

func TestSessionManager_ConcurrentOpen(t *testing.T) {
	t.Parallel()

	sm, _ := newTestSessionManager(t, memstore.New())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sm.Open(context.Background(), "shared", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, app.ErrSessionExists):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful opens = %d, want 1", ok)
	}
}

func TestSessionManager_StorageFailureIsDegradedNotFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sm, reader := newTestSessionManager(t, failingStore{memstore.New()})

	ed, err := sm.Open(ctx, "doc-1", "text")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sm.IsDegraded() {
		t.Fatal("degraded before any failed write")
	}

	if ed.FlushSnapshot() {
		t.Fatal("no snapshot should be pending before an edit")
	}
	ed.SetText(ctx, "edited")
	if !ed.FlushSnapshot() {
		t.Fatal("expected a pending snapshot after an edit")
	}

	if !sm.IsDegraded() {
		t.Error("IsDegraded() = false after a failed snapshot save")
	}
	if got := sum(t, reader, "scribe.storage.errors", "op", "SaveSnapshot"); got != 1 {
		t.Errorf("storage errors = %d, want 1", got)
	}
	if got := sum(t, reader, "scribe.storage.degraded", "", ""); got != 1 {
		t.Errorf("degraded gauge = %d, want 1", got)
	}
	if ed.Text() != "edited" {
		t.Errorf("document changed by storage failure: %q", ed.Text())
	}

	if err := sm.Close(ctx, "doc-1"); err != nil {
		t.Errorf("Close with failing store: %v", err)
	}
	if got := sum(t, reader, "scribe.storage.degraded", "", ""); got != 0 {
		t.Errorf("degraded gauge after close = %d, want 0", got)
	}
}

func TestSessionManager_QuotaWarningReachesNotifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sm, reader := newTestSessionManager(t, memstore.New(memstore.WithQuota(16)))

	var mu sync.Mutex
	var notices []editor.Notice
	notify := editor.NotifierFunc(func(n editor.Notice) {
		mu.Lock()
		defer mu.Unlock()
		notices = append(notices, n)
	})

	ed, err := sm.Open(ctx, "doc-1", "short", editor.WithNotifier(notify))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ed.SetText(ctx, strings.Repeat("long text ", 10))

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, n := range notices {
		if n.Level == editor.LevelWarning && strings.Contains(n.Message, "Storage is full") {
			found = true
		}
	}
	if !found {
		t.Errorf("notices = %+v, want a storage-full warning", notices)
	}
	if got := sum(t, reader, "scribe.storage.errors", "kind", "quota"); got == 0 {
		t.Error("quota failures were not counted")
	}
}

func TestSessionManager_ApplySettings(t *testing.T) {
	t.Parallel()

	sm, _ := newTestSessionManager(t, memstore.New())
	ed, err := sm.Open(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s := testSettings()
	s.MaxVersions = 3
	sm.ApplySettings(s)

	if got := ed.Settings().MaxVersions; got != 3 {
		t.Errorf("MaxVersions = %d, want 3", got)
	}
}

func TestSessionManager_QuotaShedKeepsHistoryInSync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(memstore.WithQuota(600))
	sm, _ := newTestSessionManager(t, store)
	ed, err := sm.Open(ctx, "talk", strings.Repeat("a", 100))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, c := range "bcdefg" {
		ed.SetText(ctx, strings.Repeat(string(c), 100))
	}

	stored, err := store.LoadVersions(ctx, "talk")
	if err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}
	if len(stored) >= 6 {
		t.Fatalf("stored %d versions, quota did not force shedding", len(stored))
	}
	got := ed.Versions()
	if len(got) != len(stored) {
		t.Fatalf("editor lists %d versions, store holds %d", len(got), len(stored))
	}
	for i := range got {
		if got[i].ID != stored[i].ID {
			t.Errorf("version %d = %s, store has %s", i, got[i].ID, stored[i].ID)
		}
	}
}
