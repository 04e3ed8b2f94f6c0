package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// AppendRunState inserts a new entry through the ownership predicate. The
// INSERT ... SELECT produces no row when the run does not belong to sessionID.
func (s *Store) AppendRunState(ctx context.Context, sessionID, runID uuid.UUID, in types.NewRunStateEntry) (*types.RunStateEntry, error) {
	state := in.State
	if state == nil {
		state = map[string]any{}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, apperr.InvalidRequest("append_run_state", "state is not JSON-serializable")
	}

	entry := &types.RunStateEntry{
		ID:               uuid.New(),
		RunID:            runID,
		Step:             in.Step,
		State:            state,
		ContainsFreeText: in.ContainsFreeText,
	}
	ts := now()

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO run_states (id, run_id, step, state, contains_free_text, created_at)
		 SELECT ?, r.id, ?, ?, ?, ? FROM runs r WHERE r.id = ? AND r.session_id = ?
		 RETURNING seq`,
		entry.ID, in.Step, string(stateJSON), in.ContainsFreeText, ts, runID, sessionID,
	).Scan(&entry.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotOwned("append_run_state")
	}
	if err != nil {
		return nil, classify("append_run_state", err, apperr.CodeWriteFailed)
	}
	entry.CreatedAt = fromNanos(ts)
	return entry, nil
}

// LatestRunState returns the entry with the greatest seq, or nil when the run has none.
func (s *Store) LatestRunState(ctx context.Context, sessionID, runID uuid.UUID) (*types.RunStateEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM runs r
		 LEFT JOIN run_states s ON s.seq = (SELECT MAX(seq) FROM run_states WHERE run_id = r.id)
		 WHERE r.id = ? AND r.session_id = ?`,
		runID, sessionID,
	)
	entry, err := scanGuardedEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotOwned("latest_run_state")
	}
	if err != nil {
		return nil, classify("latest_run_state", err, apperr.CodeReadFailed)
	}
	return entry, nil
}

// ListRunStates returns every entry of the run in ascending seq order.
func (s *Store) ListRunStates(ctx context.Context, sessionID, runID uuid.UUID) ([]types.RunStateEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM runs r
		 LEFT JOIN run_states s ON s.run_id = r.id
		 WHERE r.id = ? AND r.session_id = ?
		 ORDER BY s.seq ASC`,
		runID, sessionID,
	)
	if err != nil {
		return nil, classify("list_run_states", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	var (
		entries []types.RunStateEntry
		matched bool
	)
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
	if entries == nil {
		entries = []types.RunStateEntry{}
	}
	return entries, nil
}

// GetRunState fetches a single entry, guarded through its run's session.
func (s *Store) GetRunState(ctx context.Context, sessionID, entryID uuid.UUID) (*types.RunStateEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.id, s.id, s.seq, s.step, s.state, s.contains_free_text, s.created_at
		 FROM run_states s
		 JOIN runs r ON r.id = s.run_id
		 WHERE s.id = ? AND r.session_id = ?`,
		entryID, sessionID,
	)
	entry, err := scanGuardedEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotOwned("get_run_state")
	}
	if err != nil {
		return nil, classify("get_run_state", err, apperr.CodeReadFailed)
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanGuardedEntry scans a runs-joined row. A NULL entry side yields nil.
func scanGuardedEntry(row rowScanner) (*types.RunStateEntry, error) {
	var (
		runID     uuid.UUID
		id        sql.NullString
		seq       sql.NullInt64
		step      sql.NullString
		state     sql.NullString
		freeText  sql.NullBool
		createdAt sql.NullInt64
	)
	if err := row.Scan(&runID, &id, &seq, &step, &state, &freeText, &createdAt); err != nil {
		return nil, err
	}
	if !id.Valid {
		return nil, nil
	}

	entryID, err := uuid.Parse(id.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry id: %w", err)
	}
	entry := &types.RunStateEntry{
		ID:               entryID,
		RunID:            runID,
		Seq:              seq.Int64,
		Step:             step.String,
		ContainsFreeText: freeText.Bool,
		CreatedAt:        fromNanos(createdAt.Int64),
	}
	if err := json.Unmarshal([]byte(state.String), &entry.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if entry.State == nil {
		entry.State = map[string]any{}
	}
	return entry, nil
}
