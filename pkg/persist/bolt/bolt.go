// Package bolt is a [persist.Gateway] backed by a single bbolt file.
//
// Each concern has its own bucket keyed by document ID: the snapshot is
// stored as raw text, versions and speakers as JSON.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MrWong99/scribe/pkg/persist"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketVersions  = []byte("versions")
	bucketSpeakers  = []byte("speakers")

	allBuckets = [][]byte{bucketSnapshots, bucketVersions, bucketSpeakers}
)

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithQuota limits the bytes stored per document. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// WithTimeout sets how long Open waits for the file lock. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// Store is safe for concurrent use.
type Store struct {
	db      *bbolt.DB
	quota   int
	timeout time.Duration
}

var _ persist.Gateway = (*Store)(nil)

// Open opens (creating if needed) the database file at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{timeout: 5 * time.Second}
	for _, o := range opts {
		o(s)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("persist: bolt: open %q: %w", path, mapErr(err))
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: bolt: create buckets: %w", err)
	}
	s.db = db
	return s, nil
}

// put writes value under docID in bucket, enforcing the per-document quota.
func (s *Store) put(bucket []byte, docID string, value []byte) error {
	key := []byte(docID)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if s.quota > 0 {
			total := len(value)
			for _, name := range allBuckets {
				if string(name) == string(bucket) {
					continue
				}
				total += len(tx.Bucket(name).Get(key))
			}
			if total > s.quota {
				return fmt.Errorf("%d bytes over %d byte quota: %w", total, s.quota, persist.ErrQuotaExceeded)
			}
		}
		return tx.Bucket(bucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("persist: bolt: put %s/%s: %w", bucket, docID, mapErr(err))
	}
	return nil
}

// get returns a copy of the value, or nil when absent.
func (s *Store) get(bucket []byte, docID string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(docID)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist: bolt: get %s/%s: %w", bucket, docID, err)
	}
	return out, nil
}

// SaveSnapshot implements [persist.Gateway].
func (s *Store) SaveSnapshot(_ context.Context, docID, text string) error {
	return s.put(bucketSnapshots, docID, []byte(text))
}

// LoadSnapshot implements [persist.Gateway].
func (s *Store) LoadSnapshot(_ context.Context, docID string) (string, bool, error) {
	v, err := s.get(bucketSnapshots, docID)
	if err != nil || v == nil {
		return "", false, err
	}
	return string(v), true, nil
}

// SaveVersions implements [persist.Gateway].
func (s *Store) SaveVersions(_ context.Context, docID string, versions []persist.Version) error {
	if versions == nil {
		versions = []persist.Version{}
	}
	data, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("persist: bolt: marshal versions: %w", err)
	}
	return s.put(bucketVersions, docID, data)
}

// LoadVersions implements [persist.Gateway].
func (s *Store) LoadVersions(_ context.Context, docID string) ([]persist.Version, error) {
	v, err := s.get(bucketVersions, docID)
	if err != nil {
		return nil, err
	}
	out := []persist.Version{}
	if v == nil {
		return out, nil
	}
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("persist: bolt: decode versions of %q: %w", docID, err)
	}
	return out, nil
}

// SaveSpeakers implements [persist.Gateway].
func (s *Store) SaveSpeakers(_ context.Context, docID string, speakers map[string]persist.Speaker) error {
	if speakers == nil {
		speakers = map[string]persist.Speaker{}
	}
	data, err := json.Marshal(speakers)
	if err != nil {
		return fmt.Errorf("persist: bolt: marshal speakers: %w", err)
	}
	return s.put(bucketSpeakers, docID, data)
}

// LoadSpeakers implements [persist.Gateway].
func (s *Store) LoadSpeakers(_ context.Context, docID string) (map[string]persist.Speaker, error) {
	v, err := s.get(bucketSpeakers, docID)
	if err != nil {
		return nil, err
	}
	out := map[string]persist.Speaker{}
	if v == nil {
		return out, nil
	}
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("persist: bolt: decode speakers of %q: %w", docID, err)
	}
	return out, nil
}

// Ping implements [persist.Gateway] by opening a read transaction.
func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close implements [persist.Gateway].
func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr turns a full disk into [persist.ErrQuotaExceeded].
func mapErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %w", persist.ErrQuotaExceeded, err)
	}
	return err
}
