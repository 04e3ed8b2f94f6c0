package server

import (
	"net/http"
	"time"

	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/labstack/echo/v4"
)

// CreateSessionRequest is the optional body of POST /v1/sessions.
type CreateSessionRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateRunRequest is the body of POST /v1/runs.
type CreateRunRequest struct {
	DesiredRole string          `json:"desired_role"`
	Status      types.RunStatus `json:"status,omitempty"`
}

// SetRunStatusRequest is the body of PUT /v1/runs/:run_id/status.
type SetRunStatusRequest struct {
	Status types.RunStatus `json:"status"`
}

// AppendStateRequest is the body of POST /v1/runs/:run_id/states.
type AppendStateRequest struct {
	Step             string         `json:"step"`
	State            map[string]any `json:"state"`
	ContainsFreeText bool           `json:"contains_free_text"`
}

// handleCreateSession creates an anonymous session.
// POST /v1/sessions
func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	sess, err := s.svc.CreateSession(c.Request().Context(), req.ExpiresAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// handleCreateRun creates a run under the caller's session.
// POST /v1/runs
func (s *Server) handleCreateRun(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	run, err := s.svc.CreateRun(c.Request().Context(), sid, req.DesiredRole, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, run)
}

// handleGetRun returns the run with its pipeline progress.
// GET /v1/runs/:run_id
func (s *Server) handleGetRun(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	runID, err := pathID(c, "run_id")
	if err != nil {
		return writeError(c, err)
	}

	progress, err := s.svc.Progress(c.Request().Context(), sid, runID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, progress)
}

// handleSetRunStatus records the asserted status.
// PUT /v1/runs/:run_id/status
func (s *Server) handleSetRunStatus(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	runID, err := pathID(c, "run_id")
	if err != nil {
		return writeError(c, err)
	}

	var req SetRunStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := s.svc.SetRunStatus(c.Request().Context(), sid, runID, req.Status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"run_id": runID, "status": req.Status})
}

// handleAppendState appends an entry to the run state log.
// POST /v1/runs/:run_id/states
func (s *Server) handleAppendState(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	runID, err := pathID(c, "run_id")
	if err != nil {
		return writeError(c, err)
	}

	var req AppendStateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	entryID, err := s.svc.Append(c.Request().Context(), sid, runID, req.Step, req.State, req.ContainsFreeText)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": entryID})
}

// handleListStates returns the run's log in creation order.
// GET /v1/runs/:run_id/states
func (s *Server) handleListStates(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	runID, err := pathID(c, "run_id")
	if err != nil {
		return writeError(c, err)
	}

	entries, err := s.svc.History(c.Request().Context(), sid, runID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

// handleLatestState returns the newest entry, or null when the log is empty.
// GET /v1/runs/:run_id/states/latest
func (s *Server) handleLatestState(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	runID, err := pathID(c, "run_id")
	if err != nil {
		return writeError(c, err)
	}

	entry, err := s.svc.Latest(c.Request().Context(), sid, runID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"entry": entry})
}

// handleGetState returns one entry by ID.
// GET /v1/states/:entry_id
func (s *Server) handleGetState(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return writeError(c, err)
	}
	entryID, err := pathID(c, "entry_id")
	if err != nil {
		return writeError(c, err)
	}

	entry, err := s.svc.Entry(c.Request().Context(), sid, entryID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}
