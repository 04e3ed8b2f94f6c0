package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// -----------------------------------------------------------------------------
// Session and Run Methods
// -----------------------------------------------------------------------------

// CreateSession inserts a new session
func (db *DB) CreateSession(ctx context.Context, expiresAt *time.Time) (*types.Session, error) {
	var s types.Session
	err := db.pool.QueryRow(ctx,
		`INSERT INTO sessions (expires_at) VALUES ($1)
		 RETURNING id, expires_at, created_at`,
		expiresAt,
	).Scan(&s.ID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, classify("create_session", err, apperr.CodeWriteFailed)
	}
	return &s, nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	var s types.Session
	err := db.pool.QueryRow(ctx,
		`SELECT id, expires_at, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("get_session", "session")
		}
		return nil, classify("get_session", err, apperr.CodeReadFailed)
	}
	return &s, nil
}

// CreateRun creates a run owned by sessionID
func (db *DB) CreateRun(ctx context.Context, sessionID uuid.UUID, in types.NewRun) (*types.Run, error) {
	status := in.Status
	if status == "" {
		status = types.RunStatusQueued
	}

	var run types.Run
	err := db.pool.QueryRow(ctx,
		`INSERT INTO runs (session_id, desired_role, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, session_id, desired_role, status, created_at, updated_at`,
		sessionID, in.DesiredRole, string(status),
	).Scan(&run.ID, &run.SessionID, &run.DesiredRole, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, classify("create_run", err, apperr.CodeWriteFailed)
	}
	return &run, nil
}

// GetRunForSession retrieves a run filtered by both its ID and the claimed session
func (db *DB) GetRunForSession(ctx context.Context, sessionID, runID uuid.UUID) (*types.Run, error) {
	var run types.Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, desired_role, status, created_at, updated_at
		 FROM runs WHERE id = $1 AND session_id = $2`,
		runID, sessionID,
	).Scan(&run.ID, &run.SessionID, &run.DesiredRole, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotOwned("get_run")
		}
		return nil, classify("get_run", err, apperr.CodeReadFailed)
	}
	return &run, nil
}

// SetRunStatus records the asserted status of a run
func (db *DB) SetRunStatus(ctx context.Context, sessionID, runID uuid.UUID, status types.RunStatus) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = NOW() WHERE id = $2 AND session_id = $3`,
		string(status), runID, sessionID,
	)
	if err != nil {
		return classify("set_run_status", err, apperr.CodeWriteFailed)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotOwned("set_run_status")
	}
	return nil
}
