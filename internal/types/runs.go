// Package types provides the records persisted by the state-custody layer and the
// derived pipeline artifacts that travel inside run state payloads.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the asserted lifecycle status of a run. Transitions are not enforced.
type RunStatus string

const (
	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusQueued, RunStatusRunning, RunStatusDone, RunStatusFailed:
		return true
	}
	return false
}

// Pipeline step names
const (
	StepRoleIntake        = "role_intake"
	StepEvidenceIngestion = "evidence_ingestion"
	StepGapAnalysis       = "gap_analysis"
	StepPathwayPlanning   = "pathway_planning"
	StepCritique          = "critique"
	StepExplanation       = "explanation"
)

// Session is the root of ownership. It is never mutated after creation.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Run is one advisory session-of-work owned by a session.
type Run struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	DesiredRole string    `json:"desired_role"`
	Status      RunStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunStateEntry is an immutable snapshot appended after a pipeline step.
// Seq is assigned by the store and defines creation order within the log.
type RunStateEntry struct {
	ID               uuid.UUID      `json:"id"`
	RunID            uuid.UUID      `json:"run_id"`
	Seq              int64          `json:"seq"`
	Step             string         `json:"step"`
	State            map[string]any `json:"state"`
	ContainsFreeText bool           `json:"contains_free_text"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NewRun holds the attributes for creating a run.
type NewRun struct {
	DesiredRole string    `json:"desired_role" validate:"required,max=200"`
	Status      RunStatus `json:"status,omitempty" validate:"omitempty,oneof=queued running done failed"`
}

// NewRunStateEntry holds the attributes for appending to the run state log.
type NewRunStateEntry struct {
	Step             string         `json:"step" validate:"required,max=100"`
	State            map[string]any `json:"state"`
	ContainsFreeText bool           `json:"contains_free_text,omitempty"`
}
