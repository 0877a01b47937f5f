package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/pkg/persist"
)

var (
	// ErrSessionExists is returned when opening a document that already has
	// an open session.
	ErrSessionExists = errors.New("app: session already open")

	// ErrSessionNotFound is returned for document IDs without an open
	// session.
	ErrSessionNotFound = errors.New("app: session not found")
)

// SessionInfo holds metadata about an open editing session.
type SessionInfo struct {
	// ID is the document ID of the session.
	ID string `json:"id"`

	// OpenedAt is when the session was opened.
	OpenedAt time.Time `json:"opened_at"`

	// Degraded is true while the last storage operation of the session
	// failed.
	Degraded bool `json:"degraded"`
}

type session struct {
	ed       *editor.Editor
	guard    *persist.Guard
	openedAt time.Time

	// degraded mirrors guard.IsDegraded for the storage-degraded gauge.
	degraded bool
}

// SessionManager owns the open editing sessions, one per document. Every
// session writes through its own [persist.Guard] over the shared backend, so
// the storage-full warning is shown once per session.
// All exported methods are safe for concurrent use.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	settings editor.Settings

	// gaugeMu guards session.degraded. Storage hooks fire while Open holds
	// mu, so they only take gaugeMu. Lock order: mu, then gaugeMu.
	gaugeMu sync.Mutex

	// Dependencies injected at construction.
	store   persist.Gateway
	metrics *observe.Metrics
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	// Store is the shared storage backend. It is not closed by the manager.
	Store persist.Gateway

	// Settings are applied to every new session.
	Settings editor.Settings

	// Metrics records session and storage metrics. Optional.
	Metrics *observe.Metrics
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*session),
		settings: cfg.Settings,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
	}
}

// Open starts a session for document id, loading any stored state. When id
// is empty a random ID is generated. initial is used when nothing is stored
// for the document. opts are applied after the manager's own editor
// options, e.g. to attach a media player or notifier.
//
// Returns [ErrSessionExists] if the document is already open.
func (sm *SessionManager) Open(ctx context.Context, id, initial string, opts ...editor.Option) (*editor.Editor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; ok {
		return nil, fmt.Errorf("%w (id=%s)", ErrSessionExists, id)
	}

	s := &session{openedAt: time.Now().UTC()}
	s.guard = persist.NewGuard(sm.store,
		persist.WithQuotaWarning(func(err error) {
			// The editor is set before any store call can fail.
			s.ed.WarnStorage(err)
		}),
		persist.WithVersionsShed(func(_ string, dropped []persist.Version) {
			s.ed.DropVersions(dropped)
		}),
		persist.WithErrorHook(func(op string, err error) {
			sm.storageFailed(s, op, err)
		}),
	)

	edOpts := []editor.Option{
		editor.WithStore(s.guard),
		editor.WithSettings(sm.settings),
	}
	if sm.metrics != nil {
		edOpts = append(edOpts, editor.WithMetrics(sm.metrics))
	}
	s.ed = editor.New(id, append(edOpts, opts...)...)

	if err := s.ed.Open(ctx, initial); err != nil {
		return nil, fmt.Errorf("app: open session %s: %w", id, err)
	}
	sm.sessions[id] = s
	if sm.metrics != nil {
		sm.metrics.ActiveSessions.Add(ctx, 1)
	}

	slog.Info("session opened", "doc_id", id, "sessions", len(sm.sessions))
	return s.ed, nil
}

// Get returns the editor of an open session.
func (sm *SessionManager) Get(id string) (*editor.Editor, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return nil, false
	}
	return s.ed, true
}

// Close flushes and ends the session of document id.
//
// Returns [ErrSessionNotFound] if no such session is open.
func (sm *SessionManager) Close(ctx context.Context, id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w (id=%s)", ErrSessionNotFound, id)
	}
	return sm.closeSession(ctx, id, s)
}

// CloseAll ends every open session. Errors are joined.
func (sm *SessionManager) CloseAll(ctx context.Context) error {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[string]*session)
	sm.mu.Unlock()

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(sessions)) {
		if err := sm.closeSession(ctx, id, sessions[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sm *SessionManager) closeSession(ctx context.Context, id string, s *session) error {
	err := s.ed.Close(ctx)
	if sm.metrics != nil {
		sm.metrics.ActiveSessions.Add(ctx, -1)
		sm.gaugeMu.Lock()
		if s.degraded {
			s.degraded = false
			sm.metrics.StorageDegraded.Add(ctx, -1)
		}
		sm.gaugeMu.Unlock()
	}
	if err != nil {
		return fmt.Errorf("app: close session %s: %w", id, err)
	}
	slog.Info("session closed", "doc_id", id)
	return nil
}

// List returns metadata for every open session, ordered by ID.
func (sm *SessionManager) List() []SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]SessionInfo, 0, len(sm.sessions))
	for _, id := range slices.Sorted(maps.Keys(sm.sessions)) {
		s := sm.sessions[id]
		out = append(out, SessionInfo{ID: id, OpenedAt: s.openedAt, Degraded: s.guard.IsDegraded()})
	}
	return out
}

// Len returns the number of open sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// ApplySettings hot-reloads editor settings into every open session and
// uses them for sessions opened later.
func (sm *SessionManager) ApplySettings(s editor.Settings) {
	sm.mu.Lock()
	sm.settings = s
	eds := make([]*editor.Editor, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		eds = append(eds, sess.ed)
	}
	sm.mu.Unlock()

	for _, ed := range eds {
		ed.ApplySettings(s)
	}
	slog.Info("editor settings applied", "sessions", len(eds))
}

// IsDegraded reports whether the last storage operation of any session
// failed. Sessions that recovered are cleared from the degraded gauge.
func (sm *SessionManager) IsDegraded() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.gaugeMu.Lock()
	defer sm.gaugeMu.Unlock()
	degraded := false
	for _, s := range sm.sessions {
		if s.guard.IsDegraded() {
			degraded = true
			continue
		}
		if s.degraded {
			s.degraded = false
			if sm.metrics != nil {
				sm.metrics.StorageDegraded.Add(context.Background(), -1)
			}
		}
	}
	return degraded
}

// storageFailed runs inside a guarded store call, which may hold the
// session's editor lock and sm.mu.
func (sm *SessionManager) storageFailed(s *session, op string, err error) {
	if sm.metrics == nil {
		return
	}
	ctx := context.Background()
	kind := "io"
	if errors.Is(err, persist.ErrQuotaExceeded) {
		kind = "quota"
	}
	sm.metrics.RecordStorageError(ctx, op, kind)

	sm.gaugeMu.Lock()
	defer sm.gaugeMu.Unlock()
	if !s.degraded {
		s.degraded = true
		sm.metrics.StorageDegraded.Add(ctx, 1)
	}
}
