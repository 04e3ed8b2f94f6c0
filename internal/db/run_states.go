package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// -----------------------------------------------------------------------------
// Run State Log Methods
// -----------------------------------------------------------------------------

// AppendRunState inserts an immutable entry. The ownership predicate is part of
// the INSERT ... SELECT so a foreign run inserts nothing and returns no row.
func (db *DB) AppendRunState(ctx context.Context, sessionID, runID uuid.UUID, in types.NewRunStateEntry) (*types.RunStateEntry, error) {
	state := in.State
	if state == nil {
		state = map[string]any{}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, apperr.InvalidRequest("append_run_state", "state is not JSON-serializable")
	}

	entry := types.RunStateEntry{
		Step:             in.Step,
		State:            state,
		ContainsFreeText: in.ContainsFreeText,
	}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO run_states (run_id, step, state, contains_free_text)
		 SELECT r.id, $3, $4, $5 FROM runs r WHERE r.id = $1 AND r.session_id = $2
		 RETURNING id, run_id, seq, created_at`,
		runID, sessionID, in.Step, stateJSON, in.ContainsFreeText,
	).Scan(&entry.ID, &entry.RunID, &entry.Seq, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotOwned("append_run_state")
		}
		return nil, classify("append_run_state", err, apperr.CodeWriteFailed)
	}
	return &entry, nil
}

// LatestRunState returns the entry with the greatest seq, or nil if the run has none
func (db *DB) LatestRunState(ctx context.Context, sessionID, runID uuid.UUID) (*types.RunStateEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM runs r
		 LEFT JOIN LATERAL (
		     SELECT id, seq, step, state, contains_free_text, created_at
		     FROM run_states WHERE run_id = r.id
		     ORDER BY seq DESC LIMIT 1
		 ) s ON TRUE
		 WHERE r.id = $1 AND r.session_id = $2`,
		runID, sessionID,
	)
	entry, err := scanGuardedEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotOwned("latest_run_state")
		}
		return nil, classify("latest_run_state", err, apperr.CodeReadFailed)
	}
	return entry, nil
}

// ListRunStates returns all entries of a run in ascending seq order
func (db *DB) ListRunStates(ctx context.Context, sessionID, runID uuid.UUID) ([]types.RunStateEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM runs r
		 LEFT JOIN run_states s ON s.run_id = r.id
		 WHERE r.id = $1 AND r.session_id = $2
		 ORDER BY s.seq ASC`,
		runID, sessionID,
	)
	if err != nil {
		return nil, classify("list_run_states", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	var matched bool
	entries := []types.RunStateEntry{}
	for rows.Next() {
		matched = true
		entry, err := scanGuardedEntry(rows)
		if err != nil {
			return nil, classify("list_run_states", err, apperr.CodeReadFailed)
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_run_states", err, apperr.CodeReadFailed)
	}
	if !matched {
		return nil, apperr.NotOwned("list_run_states")
	}
	return entries, nil
}

// GetRunState retrieves one entry, guarded through its run's session
func (db *DB) GetRunState(ctx context.Context, sessionID, entryID uuid.UUID) (*types.RunStateEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM run_states s
		 JOIN runs r ON r.id = s.run_id
		 WHERE s.id = $1 AND r.session_id = $2`,
		entryID, sessionID,
	)
	entry, err := scanGuardedEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotOwned("get_run_state")
		}
		return nil, classify("get_run_state", err, apperr.CodeReadFailed)
	}
	return entry, nil
}

// scanGuardedEntry scans a runs-joined row. A NULL entry side yields nil.
func scanGuardedEntry(row pgx.Row) (*types.RunStateEntry, error) {
	var (
		runID     uuid.UUID
		id        *uuid.UUID
		seq       *int64
		step      *string
		stateJSON []byte
		freeText  *bool
		createdAt *time.Time
	)
	if err := row.Scan(&runID, &id, &seq, &step, &stateJSON, &freeText, &createdAt); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}

	entry := &types.RunStateEntry{
		ID:    *id,
		RunID: runID,
		Seq:   *seq,
		Step:  *step,
	}
	if freeText != nil {
		entry.ContainsFreeText = *freeText
	}
	if createdAt != nil {
		entry.CreatedAt = *createdAt
	}
	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &entry.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
	}
	if entry.State == nil {
		entry.State = map[string]any{}
	}
	return entry, nil
}
