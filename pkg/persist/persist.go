// Package persist defines the storage gateway for transcript sessions: the
// latest document snapshot, the version history and the speaker registry,
// each keyed by document ID.
//
// Backends live in sub-packages:
//
//   - memstore: in-memory, used by tests and batch CLI commands
//   - bolt: a single bbolt file (the default for `scribe serve`)
//   - sqlite: a SQLite database via modernc.org/sqlite
//   - postgres: PostgreSQL via pgx
//
// Every backend maps its native "out of space" condition to
// [ErrQuotaExceeded] so that [Guard] can react uniformly.
package persist

import (
	"context"
	"errors"
	"time"
)

// ErrQuotaExceeded is returned when a write would exceed the storage quota
// or the backing store is full.
var ErrQuotaExceeded = errors.New("persist: storage quota exceeded")

// Version is one saved snapshot of the document.
type Version struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// Speaker is the registry entry of one speaker label.
type Speaker struct {
	Name            string   `json:"name"`
	Characteristics []string `json:"characteristics"`
}

// Gateway is the storage contract used by the editor.
//
// Implementations must be safe for concurrent use. Load methods return empty
// results (not errors) for unknown document IDs.
type Gateway interface {
	SaveSnapshot(ctx context.Context, docID, text string) error
	// LoadSnapshot returns ok == false when no snapshot exists.
	LoadSnapshot(ctx context.Context, docID string) (text string, ok bool, err error)

	// SaveVersions replaces the stored history of docID.
	SaveVersions(ctx context.Context, docID string, versions []Version) error
	LoadVersions(ctx context.Context, docID string) ([]Version, error)

	// SaveSpeakers replaces the stored registry of docID.
	SaveSpeakers(ctx context.Context, docID string, speakers map[string]Speaker) error
	LoadSpeakers(ctx context.Context, docID string) (map[string]Speaker, error)

	Ping(ctx context.Context) error
	Close() error
}

// Size returns the number of bytes the versions occupy when stored.
func Size(versions []Version) int {
	n := 0
	for _, v := range versions {
		n += len(v.ID) + len(v.Content) + 32
	}
	return n
}

// SpeakersSize returns the approximate stored size of a registry.
func SpeakersSize(speakers map[string]Speaker) int {
	n := 0
	for label, s := range speakers {
		n += len(label) + len(s.Name)
		for _, c := range s.Characteristics {
			n += len(c)
		}
	}
	return n
}
