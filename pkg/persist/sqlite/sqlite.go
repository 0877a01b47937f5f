// Package sqlite is a [persist.Gateway] backed by SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MrWong99/scribe/pkg/persist"
)

// Schema creates one table per concern.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	doc_id     TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	updated_at REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	doc_id  TEXT    NOT NULL,
	seq     INTEGER NOT NULL,
	id      TEXT    NOT NULL,
	ts      REAL    NOT NULL,
	content TEXT    NOT NULL,
	PRIMARY KEY (doc_id, seq)
);

CREATE TABLE IF NOT EXISTS speakers (
	doc_id          TEXT NOT NULL,
	label           TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	characteristics TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (doc_id, label)
);
`

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithQuota limits the bytes stored per document. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// Store is safe for concurrent use.
type Store struct {
	db    *sql.DB
	quota int
}

var _ persist.Gateway = (*Store)(nil)

// Open opens the database at path (":memory:" for a private in-memory
// database) and applies [Schema].
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: sqlite: open %q: %w", path, err)
	}
	// One writer at a time keeps quota checks and writes atomic.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: sqlite: migrate: %w", err)
	}
	s := &Store{db: db}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// withTx runs fn in a transaction and enforces the quota before commit.
func (s *Store) withTx(ctx context.Context, docID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err := fn(tx); err != nil {
		return mapErr(err)
	}
	if s.quota > 0 {
		used, err := docSize(ctx, tx, docID)
		if err != nil {
			return err
		}
		if used > s.quota {
			return fmt.Errorf("%d bytes over %d byte quota: %w", used, s.quota, persist.ErrQuotaExceeded)
		}
	}
	return mapErr(tx.Commit())
}

func docSize(ctx context.Context, tx *sql.Tx, docID string) (int, error) {
	const q = `
		SELECT
		  COALESCE((SELECT length(CAST(text AS BLOB)) FROM snapshots WHERE doc_id = ?1), 0) +
		  COALESCE((SELECT SUM(length(CAST(content AS BLOB)) + length(id) + 32) FROM versions WHERE doc_id = ?1), 0) +
		  COALESCE((SELECT SUM(length(label) + length(name) + length(characteristics)) FROM speakers WHERE doc_id = ?1), 0)`
	var n int
	if err := tx.QueryRowContext(ctx, q, docID).Scan(&n); err != nil {
		return 0, fmt.Errorf("persist: sqlite: measure %q: %w", docID, err)
	}
	return n, nil
}

// SaveSnapshot implements [persist.Gateway].
func (s *Store) SaveSnapshot(ctx context.Context, docID, text string) error {
	err := s.withTx(ctx, docID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (doc_id, text, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (doc_id) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
			docID, text, unixSeconds(time.Now()))
		return err
	})
	if err != nil {
		return fmt.Errorf("persist: sqlite: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot implements [persist.Gateway].
func (s *Store) LoadSnapshot(ctx context.Context, docID string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM snapshots WHERE doc_id = ?`, docID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("persist: sqlite: load snapshot: %w", err)
	}
	return text, true, nil
}

// SaveVersions implements [persist.Gateway].
func (s *Store) SaveVersions(ctx context.Context, docID string, versions []persist.Version) error {
	err := s.withTx(ctx, docID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE doc_id = ?`, docID); err != nil {
			return err
		}
		for i, v := range versions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO versions (doc_id, seq, id, ts, content) VALUES (?, ?, ?, ?, ?)`,
				docID, i, v.ID, unixSeconds(v.Timestamp), v.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist: sqlite: save versions: %w", err)
	}
	return nil
}

// LoadVersions implements [persist.Gateway].
func (s *Store) LoadVersions(ctx context.Context, docID string) ([]persist.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, content FROM versions WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("persist: sqlite: load versions: %w", err)
	}
	defer rows.Close()

	out := []persist.Version{}
	for rows.Next() {
		var v persist.Version
		var ts float64
		if err := rows.Scan(&v.ID, &ts, &v.Content); err != nil {
			return nil, fmt.Errorf("persist: sqlite: scan version: %w", err)
		}
		v.Timestamp = timeFromUnix(ts)
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveSpeakers implements [persist.Gateway].
func (s *Store) SaveSpeakers(ctx context.Context, docID string, speakers map[string]persist.Speaker) error {
	err := s.withTx(ctx, docID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM speakers WHERE doc_id = ?`, docID); err != nil {
			return err
		}
		for label, sp := range speakers {
			chars := sp.Characteristics
			if chars == nil {
				chars = []string{}
			}
			data, err := json.Marshal(chars)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO speakers (doc_id, label, name, characteristics) VALUES (?, ?, ?, ?)`,
				docID, label, sp.Name, string(data)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist: sqlite: save speakers: %w", err)
	}
	return nil
}

// LoadSpeakers implements [persist.Gateway].
func (s *Store) LoadSpeakers(ctx context.Context, docID string) (map[string]persist.Speaker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, name, characteristics FROM speakers WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("persist: sqlite: load speakers: %w", err)
	}
	defer rows.Close()

	out := map[string]persist.Speaker{}
	for rows.Next() {
		var label, name, chars string
		if err := rows.Scan(&label, &name, &chars); err != nil {
			return nil, fmt.Errorf("persist: sqlite: scan speaker: %w", err)
		}
		sp := persist.Speaker{Name: name}
		if err := json.Unmarshal([]byte(chars), &sp.Characteristics); err != nil {
			return nil, fmt.Errorf("persist: sqlite: decode characteristics of %q: %w", label, err)
		}
		out[label] = sp
	}
	return out, rows.Err()
}

// Ping implements [persist.Gateway].
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements [persist.Gateway].
func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr turns SQLITE_FULL into [persist.ErrQuotaExceeded].
func mapErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %w", persist.ErrQuotaExceeded, err)
	}
	return err
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
