package custody

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/pipeline/steps"
	"github.com/jonathan/pathway-advisor/internal/types"
	"golang.org/x/sync/errgroup"
)

// ---- Session Methods ----

// CreateSession creates a new anonymous session. expiresAt is advisory only.
func (s *Service) CreateSession(ctx context.Context, expiresAt *time.Time) (*types.Session, error) {
	const op = "create_session"
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	sess, err := s.store.CreateSession(ctx, expiresAt)
	if err != nil {
		return nil, s.finish(op, uuid.Nil, err, apperr.CodeWriteFailed)
	}
	return sess, nil
}

// Session fetches a session by ID. A missing session is NOT_FOUND.
func (s *Service) Session(ctx context.Context, sessionID uuid.UUID) (*types.Session, error) {
	const op = "get_session"
	if err := requireID(op, "session id", sessionID); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.finish(op, sessionID, err, apperr.CodeReadFailed)
	}
	return sess, nil
}

// ---- Run Methods ----

// CreateRun creates a run under sessionID. An empty status means queued.
func (s *Service) CreateRun(ctx context.Context, sessionID uuid.UUID, desiredRole string, status types.RunStatus) (*types.Run, error) {
	const op = "create_run"
	if err := requireID(op, "session id", sessionID); err != nil {
		return nil, err
	}
	in := types.NewRun{DesiredRole: strings.TrimSpace(desiredRole), Status: status}
	if err := validateStruct(op, in); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	run, err := s.store.CreateRun(ctx, sessionID, in)
	if err != nil {
		return nil, s.finish(op, sessionID, err, apperr.CodeWriteFailed)
	}
	return run, nil
}

// Run returns the run if it belongs to sessionID.
func (s *Service) Run(ctx context.Context, sessionID, runID uuid.UUID) (*types.Run, error) {
	const op = "get_run"
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	run, err := s.guard.Verify(ctx, sessionID, runID)
	if err != nil {
		return nil, s.finish(op, runID, err, apperr.CodeReadFailed)
	}
	return run, nil
}

// SetRunStatus records the asserted status. Only the value domain is checked.
func (s *Service) SetRunStatus(ctx context.Context, sessionID, runID uuid.UUID, status types.RunStatus) error {
	const op = "set_run_status"
	if !status.Valid() {
		return apperr.InvalidRequest(op, "status must be one of queued, running, done, failed")
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if sessionID == uuid.Nil || runID == uuid.Nil {
		return s.finish(op, runID, apperr.NotOwned(op), apperr.CodeWriteFailed)
	}
	return s.finish(op, runID, s.store.SetRunStatus(ctx, sessionID, runID, status), apperr.CodeWriteFailed)
}

// ---- Run State Log Methods ----

// Append adds an immutable entry to the run's log and returns its ID.
// The ownership check and the insert are one statement in the store.
func (s *Service) Append(ctx context.Context, sessionID, runID uuid.UUID, step string, state map[string]any, containsFreeText bool) (uuid.UUID, error) {
	const op = "append_run_state"
	in := types.NewRunStateEntry{
		Step:             strings.TrimSpace(step),
		State:            state,
		ContainsFreeText: containsFreeText,
	}
	if err := validateStruct(op, in); err != nil {
		return uuid.Nil, err
	}
	if in.State == nil {
		in.State = map[string]any{}
	}
	if s.validator != nil {
		if err := s.validator.ValidatePayload(in.State); err != nil {
			return uuid.Nil, invalid(op, err)
		}
	}
	if sessionID == uuid.Nil || runID == uuid.Nil {
		return uuid.Nil, s.finish(op, runID, apperr.NotOwned(op), apperr.CodeWriteFailed)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	entry, err := s.store.AppendRunState(ctx, sessionID, runID, in)
	if err != nil {
		return uuid.Nil, s.finish(op, runID, err, apperr.CodeWriteFailed)
	}
	return entry.ID, nil
}

// Latest returns the entry with the greatest creation order, or nil when the
// run has no entries yet.
func (s *Service) Latest(ctx context.Context, sessionID, runID uuid.UUID) (*types.RunStateEntry, error) {
	const op = "latest_run_state"
	if sessionID == uuid.Nil || runID == uuid.Nil {
		return nil, s.finish(op, runID, apperr.NotOwned(op), apperr.CodeReadFailed)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	entry, err := s.store.LatestRunState(ctx, sessionID, runID)
	if err != nil {
		return nil, s.finish(op, runID, err, apperr.CodeReadFailed)
	}
	return entry, nil
}

// History returns every entry of the run in ascending creation order.
func (s *Service) History(ctx context.Context, sessionID, runID uuid.UUID) ([]types.RunStateEntry, error) {
	const op = "list_run_states"
	if sessionID == uuid.Nil || runID == uuid.Nil {
		return nil, s.finish(op, runID, apperr.NotOwned(op), apperr.CodeReadFailed)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	entries, err := s.store.ListRunStates(ctx, sessionID, runID)
	if err != nil {
		return nil, s.finish(op, runID, err, apperr.CodeReadFailed)
	}
	return entries, nil
}

// Entry fetches one entry by ID, guarded through its run's session.
func (s *Service) Entry(ctx context.Context, sessionID, entryID uuid.UUID) (*types.RunStateEntry, error) {
	const op = "get_run_state"
	if sessionID == uuid.Nil || entryID == uuid.Nil {
		return nil, s.finish(op, entryID, apperr.NotOwned(op), apperr.CodeReadFailed)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	entry, err := s.store.GetRunState(ctx, sessionID, entryID)
	if err != nil {
		return nil, s.finish(op, entryID, err, apperr.CodeReadFailed)
	}
	return entry, nil
}

// ---- Progress ----

// RunProgress summarizes where a run stands in the pipeline.
type RunProgress struct {
	Run       *types.Run           `json:"run"`
	Latest    *types.RunStateEntry `json:"latest,omitempty"`
	Entries   int                  `json:"entries"`
	Completed []string             `json:"completed"`
	Blocked   []string             `json:"blocked,omitempty"`
	NextStep  string               `json:"next_step,omitempty"`
}

// Progress verifies ownership and loads the history concurrently. The latest
// entry is the last element of that history.
func (s *Service) Progress(ctx context.Context, sessionID, runID uuid.UUID) (*RunProgress, error) {
	const op = "run_progress"
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	// Latest and the step summary come from one history snapshot so they
	// cannot disagree under concurrent appends.
	var (
		run     *types.Run
		history []types.RunStateEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		run, err = s.guard.Verify(gctx, sessionID, runID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.store.ListRunStates(gctx, sessionID, runID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.finish(op, runID, err, apperr.CodeReadFailed)
	}

	var latest *types.RunStateEntry
	if n := len(history); n > 0 {
		latest = &history[n-1]
	}

	done := steps.Completed(history)
	completed := make([]string, 0, len(done))
	for _, name := range steps.Order {
		if done[name] {
			completed = append(completed, name)
		}
	}

	return &RunProgress{
		Run:       run,
		Latest:    latest,
		Entries:   len(history),
		Completed: completed,
		Blocked:   steps.BlockedSteps(done),
		NextStep:  steps.NextStep(done),
	}, nil
}
