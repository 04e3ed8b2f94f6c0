package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, expiresAt *time.Time) (*types.Session, error) {
	sess := &types.Session{ID: uuid.New(), CreatedAt: fromNanos(now())}
	var exp sql.NullInt64
	if expiresAt != nil {
		t := expiresAt.UTC()
		sess.ExpiresAt = &t
		exp = sql.NullInt64{Int64: t.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, expires_at, created_at) VALUES (?, ?, ?)`,
		sess.ID, exp, sess.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, classify("create_session", err, apperr.CodeWriteFailed)
	}
	return sess, nil
}

// GetSession returns the session or NOT_FOUND.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	var (
		sess      types.Session
		exp       sql.NullInt64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, expires_at, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &exp, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get_session", "session")
	}
	if err != nil {
		return nil, classify("get_session", err, apperr.CodeReadFailed)
	}
	if exp.Valid {
		t := fromNanos(exp.Int64)
		sess.ExpiresAt = &t
	}
	sess.CreatedAt = fromNanos(createdAt)
	return &sess, nil
}

// CreateRun inserts a run owned by sessionID. A missing session is a rejected write.
func (s *Store) CreateRun(ctx context.Context, sessionID uuid.UUID, in types.NewRun) (*types.Run, error) {
	ts := now()
	run := &types.Run{
		ID:          uuid.New(),
		SessionID:   sessionID,
		DesiredRole: in.DesiredRole,
		Status:      in.Status,
		CreatedAt:   fromNanos(ts),
		UpdatedAt:   fromNanos(ts),
	}
	if run.Status == "" {
		run.Status = types.RunStatusQueued
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, desired_role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.DesiredRole, string(run.Status), ts, ts,
	)
	if err != nil {
		return nil, classify("create_run", err, apperr.CodeWriteFailed)
	}
	return run, nil
}

// GetRunForSession is the ownership lookup: the run is matched on both its ID
// and the claimed session.
func (s *Store) GetRunForSession(ctx context.Context, sessionID, runID uuid.UUID) (*types.Run, error) {
	var (
		run                  types.Run
		status               string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, desired_role, status, created_at, updated_at
		 FROM runs WHERE id = ? AND session_id = ?`,
		runID, sessionID,
	).Scan(&run.ID, &run.SessionID, &run.DesiredRole, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotOwned("get_run")
	}
	if err != nil {
		return nil, classify("get_run", err, apperr.CodeReadFailed)
	}
	run.Status = types.RunStatus(status)
	run.CreatedAt = fromNanos(createdAt)
	run.UpdatedAt = fromNanos(updatedAt)
	return &run, nil
}

// SetRunStatus records the asserted status. Zero matched rows means NOT_OWNED.
func (s *Store) SetRunStatus(ctx context.Context, sessionID, runID uuid.UUID, status types.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND session_id = ?`,
		string(status), now(), runID, sessionID,
	)
	if err != nil {
		return classify("set_run_status", err, apperr.CodeWriteFailed)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("set_run_status", err, apperr.CodeWriteFailed)
	}
	if n == 0 {
		return apperr.NotOwned("set_run_status")
	}
	return nil
}
