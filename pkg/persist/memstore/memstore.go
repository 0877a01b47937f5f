// Package memstore is an in-memory [persist.Gateway].
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/scribe/pkg/persist"
)

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithQuota limits the bytes stored per document. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

type doc struct {
	snapshot *string
	versions []persist.Version
	speakers map[string]persist.Speaker
}

func (d *doc) size() int {
	n := persist.Size(d.versions) + persist.SpeakersSize(d.speakers)
	if d.snapshot != nil {
		n += len(*d.snapshot)
	}
	return n
}

// Store keeps everything in process memory. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	docs  map[string]*doc
	quota int
}

var _ persist.Gateway = (*Store)(nil)

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{docs: make(map[string]*doc)}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) get(docID string) *doc {
	d, ok := s.docs[docID]
	if !ok {
		d = &doc{}
		s.docs[docID] = d
	}
	return d
}

// update applies fn to a copy of the document and commits it when the result
// fits the quota.
func (s *Store) update(docID string, fn func(d *doc)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.get(docID)
	next := *cur
	fn(&next)
	if s.quota > 0 && next.size() > s.quota {
		return fmt.Errorf("memstore: %d bytes over %d byte quota: %w", next.size(), s.quota, persist.ErrQuotaExceeded)
	}
	*cur = next
	return nil
}

// SaveSnapshot implements [persist.Gateway].
func (s *Store) SaveSnapshot(_ context.Context, docID, text string) error {
	return s.update(docID, func(d *doc) { d.snapshot = &text })
}

// LoadSnapshot implements [persist.Gateway].
func (s *Store) LoadSnapshot(_ context.Context, docID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok || d.snapshot == nil {
		return "", false, nil
	}
	return *d.snapshot, true, nil
}

// SaveVersions implements [persist.Gateway].
func (s *Store) SaveVersions(_ context.Context, docID string, versions []persist.Version) error {
	return s.update(docID, func(d *doc) { d.versions = slices.Clone(versions) })
}

// LoadVersions implements [persist.Gateway].
func (s *Store) LoadVersions(_ context.Context, docID string) ([]persist.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[docID]; ok {
		return slices.Clone(d.versions), nil
	}
	return []persist.Version{}, nil
}

// SaveSpeakers implements [persist.Gateway].
func (s *Store) SaveSpeakers(_ context.Context, docID string, speakers map[string]persist.Speaker) error {
	cp := make(map[string]persist.Speaker, len(speakers))
	for k, v := range speakers {
		v.Characteristics = slices.Clone(v.Characteristics)
		cp[k] = v
	}
	return s.update(docID, func(d *doc) { d.speakers = cp })
}

// LoadSpeakers implements [persist.Gateway].
func (s *Store) LoadSpeakers(_ context.Context, docID string) (map[string]persist.Speaker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[docID]; ok && d.speakers != nil {
		return maps.Clone(d.speakers), nil
	}
	return map[string]persist.Speaker{}, nil
}

// Ping implements [persist.Gateway]. It always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements [persist.Gateway].
func (s *Store) Close() error { return nil }
