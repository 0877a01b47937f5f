package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/pkg/persist"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// Panel names a side panel of the editor view.
type Panel string

const (
	PanelSnippets Panel = "snippets"
	PanelNotes    Panel = "notes"
	PanelVersions Panel = "versions"
)

// ErrUnknownPanel is returned for panel names other than the Panel
// constants.
var ErrUnknownPanel = errors.New("editor: unknown panel")

// TogglePanel flips the visibility of p and returns the new state.
func (e *Editor) TogglePanel(p Panel) (bool, error) {
	switch p {
	case PanelSnippets, PanelNotes, PanelVersions:
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownPanel, p)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panels[p] = !e.panels[p]
	return e.panels[p], nil
}

// Panels returns the visibility of every panel.
func (e *Editor) Panels() map[Panel]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[Panel]bool{
		PanelSnippets: e.panels[PanelSnippets],
		PanelNotes:    e.panels[PanelNotes],
		PanelVersions: e.panels[PanelVersions],
	}
}

// Speakers lists the labels found in the document with their registry
// entries, in order of first appearance.
func (e *Editor) Speakers() []speaker.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speakers.List(timestamp.Labels(e.buf.Text()))
}

// SetSpeakerName names a label that appears in the document.
func (e *Editor) SetSpeakerName(ctx context.Context, label, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.knownLabelLocked(label); err != nil {
		return err
	}
	e.speakers.SetName(label, name)
	return e.saveSpeakersLocked(ctx)
}

// AddCharacteristic tags a label with a free-text characteristic.
func (e *Editor) AddCharacteristic(ctx context.Context, label, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.knownLabelLocked(label); err != nil {
		return err
	}
	if !e.speakers.AddCharacteristic(label, text) {
		return nil
	}
	return e.saveSpeakersLocked(ctx)
}

// RemoveCharacteristic removes the characteristic at index from label.
func (e *Editor) RemoveCharacteristic(ctx context.Context, label string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.speakers.RemoveCharacteristic(label, index) {
		return fmt.Errorf("%w: %s #%d", ErrNoCharacteristic, label, index)
	}
	return e.saveSpeakersLocked(ctx)
}

func (e *Editor) knownLabelLocked(label string) error {
	if slices.Contains(timestamp.Labels(e.buf.Text()), label) {
		return nil
	}
	return e.failLocked(fmt.Errorf("%w: %s", speaker.ErrUnknownLabel, label))
}

func (e *Editor) saveSpeakersLocked(ctx context.Context) error {
	if err := e.store.SaveSpeakers(ctx, e.id, e.speakers.Entries()); err != nil {
		return fmt.Errorf("editor: save speakers: %w", err)
	}
	return nil
}

// SaveVersion stores the current text as a version unless it equals the
// newest version.
func (e *Editor) SaveVersion(ctx context.Context) (persist.Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveVersionLocked(ctx)
}

func (e *Editor) saveVersionLocked(ctx context.Context) (persist.Version, bool) {
	v, added := e.history.Add(e.buf.Text(), e.now())
	if !added {
		return v, false
	}
	e.persistVersionsLocked(ctx)
	return v, true
}

func (e *Editor) persistVersionsLocked(ctx context.Context) {
	if err := e.store.SaveVersions(ctx, e.id, e.history.List()); err != nil {
		// Only an unguarded store gets here.
		e.notifyLocked(LevelError, "Saving the version history failed.")
	}
}

// Versions returns the version history, oldest first.
func (e *Editor) Versions() []persist.Version {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.List()
}

// RestoreVersion replaces the document with version id. The current text
// is saved as a version first so the restore can be undone.
func (e *Editor) RestoreVersion(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.history.Get(id)
	if err != nil {
		return e.failLocked(err)
	}
	e.saveVersionLocked(ctx)
	e.applyLocked(v.Content)
	return nil
}

// DeleteVersion removes version id from the history.
func (e *Editor) DeleteVersion(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Delete(id); err != nil {
		return e.failLocked(err)
	}
	e.persistVersionsLocked(ctx)
	return nil
}

// DropVersions removes versions that storage no longer holds, so the
// version panel matches what a reopen would show. Like [Editor.WarnStorage]
// it is wired to the persistence guard and runs inside store calls made
// under the editor lock, so it does not lock.
func (e *Editor) DropVersions(dropped []persist.Version) {
	for _, v := range dropped {
		_ = e.history.Delete(v.ID)
	}
}
