// Package postgres is a [persist.Gateway] backed by PostgreSQL through pgx.
// Versions and speakers are stored as JSONB documents, one row per document
// ID and concern.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/scribe/pkg/persist"
)

// Schema is the SQL DDL applied by [Store.Migrate].
const Schema = `
CREATE TABLE IF NOT EXISTS scribe_snapshots (
    doc_id     TEXT PRIMARY KEY,
    text       TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS scribe_versions (
    doc_id     TEXT PRIMARY KEY,
    versions   JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS scribe_speakers (
    doc_id     TEXT PRIMARY KEY,
    speakers   JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithQuota limits the bytes stored per document. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// Store is safe for concurrent use when its DB is.
type Store struct {
	db    DB
	pool  *pgxpool.Pool
	quota int
}

var _ persist.Gateway = (*Store)(nil)

// Open connects a pool to dsn, pings it and applies [Schema].
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: postgres: ping: %w", err)
	}
	s := New(pool, opts...)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New returns a Store using db. The caller owns db and must run
// [Store.Migrate] before use.
func New(db DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate executes [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("persist: postgres: migrate: %w", err)
	}
	return nil
}

// checkQuota verifies that replacing the stored value of one concern with
// size bytes keeps the document within the quota.
func (s *Store) checkQuota(ctx context.Context, docID, exclude string, size int) error {
	if s.quota <= 0 {
		return nil
	}
	const q = `
		SELECT
		  CASE WHEN $2 = 'snapshots' THEN 0 ELSE COALESCE((SELECT octet_length(text) FROM scribe_snapshots WHERE doc_id = $1), 0) END +
		  CASE WHEN $2 = 'versions'  THEN 0 ELSE COALESCE((SELECT octet_length(versions::text) FROM scribe_versions WHERE doc_id = $1), 0) END +
		  CASE WHEN $2 = 'speakers'  THEN 0 ELSE COALESCE((SELECT octet_length(speakers::text) FROM scribe_speakers WHERE doc_id = $1), 0) END`
	var used int64
	if err := s.db.QueryRow(ctx, q, docID, exclude).Scan(&used); err != nil {
		return fmt.Errorf("persist: postgres: measure %q: %w", docID, mapErr(err))
	}
	if total := int(used) + size; total > s.quota {
		return fmt.Errorf("persist: postgres: %d bytes over %d byte quota: %w", total, s.quota, persist.ErrQuotaExceeded)
	}
	return nil
}

// SaveSnapshot implements [persist.Gateway].
func (s *Store) SaveSnapshot(ctx context.Context, docID, text string) error {
	if err := s.checkQuota(ctx, docID, "snapshots", len(text)); err != nil {
		return err
	}
	const q = `
		INSERT INTO scribe_snapshots (doc_id, text) VALUES ($1, $2)
		ON CONFLICT (doc_id) DO UPDATE SET text = EXCLUDED.text, updated_at = now()`
	if _, err := s.db.Exec(ctx, q, docID, text); err != nil {
		return fmt.Errorf("persist: postgres: save snapshot: %w", mapErr(err))
	}
	return nil
}

// LoadSnapshot implements [persist.Gateway].
func (s *Store) LoadSnapshot(ctx context.Context, docID string) (string, bool, error) {
	var text string
	err := s.db.QueryRow(ctx, `SELECT text FROM scribe_snapshots WHERE doc_id = $1`, docID).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("persist: postgres: load snapshot: %w", err)
	}
	return text, true, nil
}

// SaveVersions implements [persist.Gateway].
func (s *Store) SaveVersions(ctx context.Context, docID string, versions []persist.Version) error {
	if versions == nil {
		versions = []persist.Version{}
	}
	data, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("persist: postgres: marshal versions: %w", err)
	}
	if err := s.checkQuota(ctx, docID, "versions", len(data)); err != nil {
		return err
	}
	const q = `
		INSERT INTO scribe_versions (doc_id, versions) VALUES ($1, $2)
		ON CONFLICT (doc_id) DO UPDATE SET versions = EXCLUDED.versions, updated_at = now()`
	if _, err := s.db.Exec(ctx, q, docID, data); err != nil {
		return fmt.Errorf("persist: postgres: save versions: %w", mapErr(err))
	}
	return nil
}

// LoadVersions implements [persist.Gateway].
func (s *Store) LoadVersions(ctx context.Context, docID string) ([]persist.Version, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT versions FROM scribe_versions WHERE doc_id = $1`, docID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return []persist.Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: postgres: load versions: %w", err)
	}
	out := []persist.Version{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("persist: postgres: decode versions of %q: %w", docID, err)
	}
	return out, nil
}

// SaveSpeakers implements [persist.Gateway].
func (s *Store) SaveSpeakers(ctx context.Context, docID string, speakers map[string]persist.Speaker) error {
	if speakers == nil {
		speakers = map[string]persist.Speaker{}
	}
	data, err := json.Marshal(speakers)
	if err != nil {
		return fmt.Errorf("persist: postgres: marshal speakers: %w", err)
	}
	if err := s.checkQuota(ctx, docID, "speakers", len(data)); err != nil {
		return err
	}
	const q = `
		INSERT INTO scribe_speakers (doc_id, speakers) VALUES ($1, $2)
		ON CONFLICT (doc_id) DO UPDATE SET speakers = EXCLUDED.speakers, updated_at = now()`
	if _, err := s.db.Exec(ctx, q, docID, data); err != nil {
		return fmt.Errorf("persist: postgres: save speakers: %w", mapErr(err))
	}
	return nil
}

// LoadSpeakers implements [persist.Gateway].
func (s *Store) LoadSpeakers(ctx context.Context, docID string) (map[string]persist.Speaker, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT speakers FROM scribe_speakers WHERE doc_id = $1`, docID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]persist.Speaker{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: postgres: load speakers: %w", err)
	}
	out := map[string]persist.Speaker{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("persist: postgres: decode speakers of %q: %w", docID, err)
	}
	return out, nil
}

// Ping implements [persist.Gateway].
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("persist: postgres: ping: %w", err)
	}
	return nil
}

// Close releases the pool opened by [Open]. Stores built with [New] leave
// their DB open.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// mapErr maps disk_full (53100) and program_limit_exceeded (54000) to
// [persist.ErrQuotaExceeded].
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "53100" || pgErr.Code == "54000") {
		return fmt.Errorf("%w: %w", persist.ErrQuotaExceeded, err)
	}
	return err
}
