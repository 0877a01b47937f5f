// Package editor is the command surface of a transcript editing session.
//
// An [Editor] owns the document buffer of one transcript and composes the
// timestamp validator, the suggestion engine, the multi-occurrence edit
// engine, the transformation library, the speaker registry and the version
// history behind one method per operation. [Editor.Execute] dispatches the
// same operations from a tagged [Command] for transports such as the HTTP
// API.
//
// All methods are serialised by one mutex, so the session behaves like a
// single-threaded event loop: periodic capitalization, version autosave and
// the debounced validation and snapshot timers take the same lock and never
// run concurrently with a mutation.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/history"
	"github.com/MrWong99/scribe/internal/multiedit"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/schedule"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/suggest"
	"github.com/MrWong99/scribe/internal/validate"
	"github.com/MrWong99/scribe/pkg/media"
	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/persist/memstore"
)

// persistTimeout bounds storage calls made from timers and Close.
const persistTimeout = 10 * time.Second

var (
	// ErrNoMatch is returned when find or replace has no hits.
	ErrNoMatch = errors.New("editor: no match found")

	// ErrTimestampOutOfOrder is returned when a non-forced timestamp
	// insertion would break chronological order with its neighbours.
	ErrTimestampOutOfOrder = errors.New("editor: timestamp would break chronological order")

	// ErrNoPlaybackPosition is returned when the media player cannot report
	// a usable position.
	ErrNoPlaybackPosition = errors.New("editor: media playback position unavailable")

	// ErrNoTimestamp is returned when no timestamp precedes the cursor.
	ErrNoTimestamp = errors.New("editor: no timestamp at or before the cursor")

	// ErrNoSuggestion is returned when committing a suggestion that is not
	// open.
	ErrNoSuggestion = errors.New("editor: no suggestion at that index")

	// ErrNoCharacteristic is returned when removing a characteristic index
	// that does not exist.
	ErrNoCharacteristic = errors.New("editor: characteristic not found")

	// ErrClosed is returned by operations on a closed editor.
	ErrClosed = errors.New("editor: session closed")
)

// Settings are the tunables of a session. They can be replaced on a live
// editor with [Editor.ApplySettings].
type Settings struct {
	CapitalizeInterval    time.Duration
	AutosaveInterval      time.Duration
	ValidationDebounce    time.Duration
	SnapshotDebounce      time.Duration
	ContinuousValidation  bool
	ViewportBuffer        float64
	SnippetCount          int
	MaxVersions           int
	TranscriptSuggestions bool
	SuggestionLimit       int
	Fillers               []string
	ActiveListeningCues   []string

	// Phrases and Shortcuts fall back to the suggestion engine defaults
	// when nil.
	Phrases   []string
	Shortcuts map[string]string
}

// SettingsFromConfig converts the editor section of the configuration.
func SettingsFromConfig(c config.EditorConfig) Settings {
	return Settings{
		CapitalizeInterval:    c.CapitalizeInterval,
		AutosaveInterval:      c.AutosaveInterval,
		ValidationDebounce:    c.ValidationDebounce,
		SnapshotDebounce:      c.SnapshotDebounce,
		ContinuousValidation:  c.ContinuousValidation,
		ViewportBuffer:        c.ViewportBuffer,
		SnippetCount:          c.SnippetCount,
		MaxVersions:           c.MaxVersions,
		TranscriptSuggestions: c.SuggestFromTranscript(),
		SuggestionLimit:       c.SuggestionLimit,
		Fillers:               slices.Clone(c.Fillers),
		ActiveListeningCues:   slices.Clone(c.ActiveListeningCues),
		Phrases:               slices.Clone(c.Phrases),
		Shortcuts:             c.Shortcuts,
	}
}

// DefaultSettings returns the settings of a default configuration.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default().Editor)
}

func (s Settings) suggestOptions() []suggest.Option {
	phrases := s.Phrases
	if phrases == nil {
		phrases = suggest.DefaultPhrases
	}
	shortcuts := s.Shortcuts
	if shortcuts == nil {
		shortcuts = suggest.DefaultShortcuts
	}
	return []suggest.Option{
		suggest.WithPhrases(phrases),
		suggest.WithShortcuts(shortcuts),
		suggest.WithTranscriptWords(s.TranscriptSuggestions),
		suggest.WithLimit(s.SuggestionLimit),
	}
}

// Option is a functional option for [New].
type Option func(*Editor)

// WithStore sets the persistence gateway. The default is an in-memory store.
// Callers normally pass a [persist.Guard] so storage failures never reach
// the editor.
func WithStore(g persist.Gateway) Option {
	return func(e *Editor) { e.store = g }
}

// WithPlayer sets the media player. The default is [media.Nop].
func WithPlayer(p media.Player) Option {
	return func(e *Editor) { e.player = p }
}

// WithNotifier sets the receiver of user-facing notices. If it also
// implements [Scroller] it is asked to scroll on navigation.
func WithNotifier(n Notifier) Option {
	return func(e *Editor) { e.notifier = n }
}

// WithMetrics records command and validation metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithSettings replaces [DefaultSettings].
func WithSettings(s Settings) Option {
	return func(e *Editor) { e.settings = s }
}

// WithViewportEstimator replaces the ratio based viewport estimator.
func WithViewportEstimator(v validate.ViewportEstimator) Option {
	return func(e *Editor) { e.estimator = v }
}

// WithClock overrides time.Now for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// Editor is one transcript editing session. All exported methods are safe
// for concurrent use.
type Editor struct {
	mu sync.Mutex

	id        string
	store     persist.Gateway
	player    media.Player
	notifier  Notifier
	metrics   *observe.Metrics
	estimator validate.ViewportEstimator
	settings  Settings
	now       func() time.Time

	buf      *document.Buffer
	sugg     *suggest.Engine
	multi    *multiedit.Session
	speakers *speaker.Registry
	history  *history.History

	lastSel    document.Selection
	hasLastSel bool
	viewport   *validate.Viewport
	markMode   string

	invalidNav  validate.Navigator
	repeatedNav validate.Navigator
	blankNav    validate.Navigator

	panels map[Panel]bool

	capitalizeTick *schedule.Interval
	autosaveTick   *schedule.Interval
	validateLater  *schedule.Debouncer
	snapshotLater  *schedule.Debouncer

	opened bool
	closed bool
}

// New creates an editor for document id. Call [Editor.Open] before use.
func New(id string, opts ...Option) *Editor {
	e := &Editor{
		id:       id,
		player:   media.Nop{},
		settings: DefaultSettings(),
		now:      time.Now,
		speakers: speaker.New(),
		panels:   make(map[Panel]bool),
	}
	for _, o := range opts {
		o(e)
	}
	if e.store == nil {
		e.store = persist.NewGuard(memstore.New())
	}
	if e.estimator == nil {
		e.estimator = validate.RatioEstimator{Buffer: e.settings.ViewportBuffer}
	}
	e.sugg = suggest.New(e.settings.suggestOptions()...)
	e.history = history.New(e.settings.MaxVersions)
	e.attach(document.New(""))
	return e
}

// ID returns the document ID.
func (e *Editor) ID() string { return e.id }

func (e *Editor) attach(buf *document.Buffer) {
	e.buf = buf
	buf.OnChange(e.onChange)
}

// onChange runs inside a mutation, with e.mu held.
func (e *Editor) onChange(document.Change) {
	if e.snapshotLater != nil {
		e.snapshotLater.Trigger()
	}
	if e.settings.ContinuousValidation && e.validateLater != nil {
		e.validateLater.Trigger()
	}
}

// Open loads the stored snapshot, version history and speaker registry of
// the document and starts the session timers. When no snapshot is stored
// the document starts with initial.
func (e *Editor) Open(ctx context.Context, initial string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	text := initial
	if snap, ok, err := e.store.LoadSnapshot(ctx, e.id); err != nil {
		slog.Warn("editor: load snapshot failed, using initial text", "doc_id", e.id, "err", err)
	} else if ok {
		text = snap
	}
	e.attach(document.New(text))

	if vs, err := e.store.LoadVersions(ctx, e.id); err != nil {
		slog.Warn("editor: load versions failed", "doc_id", e.id, "err", err)
	} else {
		e.history.Load(vs)
	}
	if sp, err := e.store.LoadSpeakers(ctx, e.id); err != nil {
		slog.Warn("editor: load speakers failed", "doc_id", e.id, "err", err)
	} else {
		e.speakers.Load(sp)
	}

	e.startTimersLocked()
	e.opened = true
	if e.settings.ContinuousValidation {
		e.validateViewportLocked(ctx)
	}
	slog.Info("editor: session opened", "doc_id", e.id, "runes", e.buf.Len(), "versions", e.history.Len())
	return nil
}

// Close stops all timers and flushes the snapshot, the version history and
// the speaker registry. Closing twice is a no-op.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.exitMultiLocked()
	var ticks []*schedule.Interval
	if e.opened {
		e.validateLater.Stop()
		e.snapshotLater.Stop()
		ticks = append(ticks, e.capitalizeTick, e.autosaveTick)
	}

	err := errors.Join(
		e.store.SaveSnapshot(ctx, e.id, e.buf.Text()),
		e.store.SaveVersions(ctx, e.id, e.history.List()),
		e.store.SaveSpeakers(ctx, e.id, e.speakers.Entries()),
	)
	e.mu.Unlock()

	// Interval.Stop waits for a running tick, which needs e.mu.
	for _, t := range ticks {
		t.Stop()
	}
	slog.Info("editor: session closed", "doc_id", e.id)
	return err
}

// ApplySettings replaces the session settings. Intervals are restarted only
// when they changed; suggestion settings apply to the next keystroke.
func (e *Editor) ApplySettings(s Settings) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	old := e.settings
	e.settings = s

	e.sugg.Configure(s.suggestOptions()...)
	e.history.Cap(s.MaxVersions)
	if est, ok := e.estimator.(validate.RatioEstimator); ok {
		est.Buffer = s.ViewportBuffer
		e.estimator = est
	}

	var stale []*schedule.Interval
	if e.opened {
		e.validateLater.SetDelay(s.ValidationDebounce)
		e.snapshotLater.SetDelay(s.SnapshotDebounce)
		if s.CapitalizeInterval != old.CapitalizeInterval {
			stale = append(stale, e.capitalizeTick)
			e.capitalizeTick = schedule.Every(s.CapitalizeInterval, e.tickCapitalize)
		}
		if s.AutosaveInterval != old.AutosaveInterval {
			stale = append(stale, e.autosaveTick)
			e.autosaveTick = schedule.Every(s.AutosaveInterval, e.tickAutosave)
		}
		if s.ContinuousValidation != old.ContinuousValidation {
			e.setContinuousLocked(context.Background(), s.ContinuousValidation)
		}
	}
	e.mu.Unlock()

	for _, t := range stale {
		t.Stop()
	}
	slog.Debug("editor: settings applied", "doc_id", e.id)
}

// Settings returns the current settings.
func (e *Editor) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Editor) startTimersLocked() {
	e.validateLater = schedule.NewDebouncer(e.settings.ValidationDebounce, e.debouncedValidate)
	e.snapshotLater = schedule.NewDebouncer(e.settings.SnapshotDebounce, e.debouncedSnapshot)
	e.capitalizeTick = schedule.Every(e.settings.CapitalizeInterval, e.tickCapitalize)
	e.autosaveTick = schedule.Every(e.settings.AutosaveInterval, e.tickAutosave)
}

func (e *Editor) tickCapitalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.multi != nil {
		return
	}
	e.capitalizeLocked()
}

func (e *Editor) tickAutosave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	e.saveVersionLocked(ctx)
}

func (e *Editor) debouncedValidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.settings.ContinuousValidation {
		return
	}
	e.validateViewportLocked(context.Background())
}

func (e *Editor) debouncedSnapshot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.SaveSnapshot(ctx, e.id, e.buf.Text()); err != nil {
		slog.Warn("editor: snapshot save failed", "doc_id", e.id, "err", err)
	}
}

// FlushSnapshot saves the snapshot now if a debounced save is pending.
func (e *Editor) FlushSnapshot() bool {
	e.mu.Lock()
	d := e.snapshotLater
	e.mu.Unlock()
	if d == nil {
		return false
	}
	// The debounced callback takes e.mu itself.
	return d.Flush()
}
