// Package sqlite is the embedded custody store backed by modernc.org/sqlite.
// It is used for local runs and tests and mirrors the Postgres backend's semantics.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/pathway-advisor/internal/apperr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SchemaVersion is stored in user_version once EnsureSchema has run.
const SchemaVersion = 1

// Store wraps a single-connection SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path with WAL and a busy timeout.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; readers queue behind it rather than racing for the lock.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := verifyWALMode(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() {
	_ = s.db.Close()
}

// DB exposes the handle for tests and tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("ping", err, apperr.CodeReadFailed)
	}
	return nil
}

// EnsureSchema creates the custody tables when user_version is behind SchemaVersion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return classify("ensure_schema", fmt.Errorf("failed to get user_version: %w", err), apperr.CodeWriteFailed)
	}
	if version >= SchemaVersion {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return classify("ensure_schema", fmt.Errorf("failed to apply schema: %w", err), apperr.CodeWriteFailed)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", SchemaVersion)); err != nil {
		return classify("ensure_schema", fmt.Errorf("failed to set user_version: %w", err), apperr.CodeWriteFailed)
	}
	return nil
}

func verifyWALMode(ctx context.Context, db *sql.DB) error {
	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func now() int64 {
	return time.Now().UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
  id          TEXT PRIMARY KEY,
  expires_at  INTEGER,
  created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
  id            TEXT PRIMARY KEY,
  session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  desired_role  TEXT NOT NULL,
  status        TEXT NOT NULL CHECK (status IN ('queued','running','done','failed')),
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);

CREATE TABLE IF NOT EXISTS run_states (
  seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
  id                  TEXT NOT NULL UNIQUE,
  run_id              TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  step                TEXT NOT NULL,
  state               TEXT NOT NULL,
  contains_free_text  INTEGER NOT NULL DEFAULT 0,
  created_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_states_run_seq ON run_states(run_id, seq);

CREATE TRIGGER IF NOT EXISTS run_states_append_only
BEFORE UPDATE ON run_states
BEGIN
  SELECT RAISE(ABORT, 'run_states is append-only');
END;

CREATE TABLE IF NOT EXISTS evidence_documents (
  id             TEXT PRIMARY KEY,
  session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  source_type    TEXT NOT NULL CHECK (source_type IN ('resume','transcript','portfolio','job_posting','other')),
  content_hash   TEXT NOT NULL,
  storage_ref    TEXT,
  consent_level  TEXT NOT NULL DEFAULT 'derived_only' CHECK (consent_level IN ('derived_only','excerpt_ok','raw_ok')),
  created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_documents_session_hash ON evidence_documents(session_id, content_hash);

CREATE TABLE IF NOT EXISTS evidence_items (
  id           TEXT PRIMARY KEY,
  document_id  TEXT NOT NULL REFERENCES evidence_documents(id) ON DELETE CASCADE,
  item_type    TEXT NOT NULL CHECK (item_type IN ('skill','experience','project','coursework','claim')),
  label        TEXT NOT NULL,
  snippet      TEXT,
  confidence   REAL NOT NULL DEFAULT 0.8 CHECK (confidence >= 0 AND confidence <= 1),
  metadata     TEXT NOT NULL DEFAULT '{}',
  ordinal      INTEGER NOT NULL,
  created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_items_document ON evidence_items(document_id, ordinal);

CREATE TABLE IF NOT EXISTS roles (
  id          TEXT PRIMARY KEY,
  role_title  TEXT NOT NULL,
  onet_code   TEXT NOT NULL DEFAULT '',
  version     TEXT NOT NULL DEFAULT '',
  summary     TEXT NOT NULL DEFAULT '{}',
  created_at  INTEGER NOT NULL,
  updated_at  INTEGER NOT NULL,
  UNIQUE (role_title, onet_code, version)
);

CREATE TABLE IF NOT EXISTS role_requirements (
  id          TEXT PRIMARY KEY,
  role_id     TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
  req_type    TEXT NOT NULL CHECK (req_type IN ('skill','knowledge','task','tech')),
  label       TEXT NOT NULL,
  importance  REAL,
  metadata    TEXT NOT NULL DEFAULT '{}',
  ordinal     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_role_requirements_role ON role_requirements(role_id, ordinal);
`
