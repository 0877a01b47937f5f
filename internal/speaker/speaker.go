// Package speaker keeps the per-document speaker registry: a display name
// and free-form characteristics for each speaker label (S1, S2, ...).
package speaker

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/MrWong99/scribe/pkg/persist"
)

// ErrUnknownLabel is returned for labels the document does not contain.
var ErrUnknownLabel = errors.New("speaker: label not present in the document")

// Registry is not safe for concurrent use; the editor serialises access.
type Registry struct {
	entries map[string]persist.Speaker
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]persist.Speaker)}
}

// Load replaces the registry contents.
func (r *Registry) Load(entries map[string]persist.Speaker) {
	r.entries = make(map[string]persist.Speaker, len(entries))
	for label, s := range entries {
		s.Characteristics = slices.Clone(s.Characteristics)
		r.entries[label] = s
	}
}

// Entries returns a copy of the registry.
func (r *Registry) Entries() map[string]persist.Speaker {
	out := maps.Clone(r.entries)
	for label, s := range out {
		s.Characteristics = slices.Clone(s.Characteristics)
		out[label] = s
	}
	return out
}

// Name returns the display name of label, or label itself when unnamed.
func (r *Registry) Name(label string) string {
	if s, ok := r.entries[label]; ok && s.Name != "" {
		return s.Name
	}
	return label
}

// SetName sets the display name of label. An empty name clears it.
func (r *Registry) SetName(label, name string) {
	s := r.entries[label]
	s.Name = strings.TrimSpace(name)
	r.entries[label] = s
}

// AddCharacteristic appends a note about the speaker. Blank text is ignored.
func (r *Registry) AddCharacteristic(label, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	s := r.entries[label]
	s.Characteristics = append(s.Characteristics, text)
	r.entries[label] = s
	return true
}

// RemoveCharacteristic deletes the characteristic at index. It reports
// whether anything was removed.
func (r *Registry) RemoveCharacteristic(label string, index int) bool {
	s, ok := r.entries[label]
	if !ok || index < 0 || index >= len(s.Characteristics) {
		return false
	}
	s.Characteristics = slices.Delete(slices.Clone(s.Characteristics), index, index+1)
	r.entries[label] = s
	return true
}

// View is one row of the speaker panel.
type View struct {
	Label           string   `json:"label"`
	Name            string   `json:"name"`
	Characteristics []string `json:"characteristics"`
}

// List returns one row per label, in the given order (normally the order the
// labels appear in the document). Registry entries for labels no longer in
// the document are kept but not listed.
func (r *Registry) List(labels []string) []View {
	out := make([]View, 0, len(labels))
	for _, l := range labels {
		s := r.entries[l]
		out = append(out, View{Label: l, Name: s.Name, Characteristics: slices.Clone(s.Characteristics)})
	}
	return out
}
