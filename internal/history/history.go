// Package history keeps the version snapshots of a document, oldest first.
package history

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/scribe/pkg/persist"
)

// ErrNotFound is returned for unknown version IDs.
var ErrNotFound = errors.New("history: version not found")

// History is not safe for concurrent use; the editor serialises access.
type History struct {
	versions []persist.Version
	limit    int
}

// New returns an empty history holding at most limit versions (0: unbounded).
func New(limit int) *History {
	return &History{limit: limit}
}

// Load replaces the history, keeping the newest entries when over capacity.
func (h *History) Load(vs []persist.Version) {
	h.versions = slices.Clone(vs)
	h.enforce()
}

// Add records content as a new version. It returns false without adding when
// content equals the newest version.
func (h *History) Add(content string, at time.Time) (persist.Version, bool) {
	if n := len(h.versions); n > 0 && h.versions[n-1].Content == content {
		return h.versions[n-1], false
	}
	v := persist.Version{ID: uuid.NewString(), Timestamp: at, Content: content}
	h.versions = append(h.versions, v)
	h.enforce()
	return v, true
}

// Get returns the version with id.
func (h *History) Get(id string) (persist.Version, error) {
	for _, v := range h.versions {
		if v.ID == id {
			return v, nil
		}
	}
	return persist.Version{}, ErrNotFound
}

// Delete removes the version with id.
func (h *History) Delete(id string) error {
	i := slices.IndexFunc(h.versions, func(v persist.Version) bool { return v.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	h.versions = slices.Delete(h.versions, i, i+1)
	return nil
}

// List returns the versions oldest first.
func (h *History) List() []persist.Version { return slices.Clone(h.versions) }

// Len returns the number of versions.
func (h *History) Len() int { return len(h.versions) }

// TrimOldest drops the n oldest versions.
func (h *History) TrimOldest(n int) {
	n = min(max(n, 0), len(h.versions))
	h.versions = slices.Delete(h.versions, 0, n)
}

// Cap changes the capacity and trims accordingly.
func (h *History) Cap(limit int) {
	h.limit = limit
	h.enforce()
}

func (h *History) enforce() {
	if h.limit > 0 && len(h.versions) > h.limit {
		h.TrimOldest(len(h.versions) - h.limit)
	}
}
