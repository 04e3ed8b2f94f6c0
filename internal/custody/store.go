// Package custody is the state-custody core: ownership checks, the append-only
// run state log, the evidence store and the role requirement cache. It holds no
// state of its own and delegates consistency to the backing store.
package custody

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// Store is the persistence contract implemented by the Postgres and SQLite backends.
//
// Every method returns *apperr.Error values. Session-scoped methods fuse the
// ownership predicate into the statement that performs the action and report
// NOT_OWNED when the guarded row set is empty.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()

	CreateSession(ctx context.Context, expiresAt *time.Time) (*types.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error)

	CreateRun(ctx context.Context, sessionID uuid.UUID, run types.NewRun) (*types.Run, error)
	GetRunForSession(ctx context.Context, sessionID, runID uuid.UUID) (*types.Run, error)
	SetRunStatus(ctx context.Context, sessionID, runID uuid.UUID, status types.RunStatus) error

	AppendRunState(ctx context.Context, sessionID, runID uuid.UUID, entry types.NewRunStateEntry) (*types.RunStateEntry, error)
	LatestRunState(ctx context.Context, sessionID, runID uuid.UUID) (*types.RunStateEntry, error)
	ListRunStates(ctx context.Context, sessionID, runID uuid.UUID) ([]types.RunStateEntry, error)
	GetRunState(ctx context.Context, sessionID, entryID uuid.UUID) (*types.RunStateEntry, error)

	InsertEvidenceDocument(ctx context.Context, sessionID uuid.UUID, doc types.NewEvidenceDocument) (*types.EvidenceDocument, error)
	GetEvidenceDocument(ctx context.Context, sessionID, documentID uuid.UUID) (*types.EvidenceDocument, error)
	ListEvidenceDocumentsByHash(ctx context.Context, sessionID uuid.UUID, contentHash string) ([]types.EvidenceDocument, error)
	InsertEvidenceItems(ctx context.Context, documentID uuid.UUID, items []types.NewEvidenceItem) ([]uuid.UUID, error)
	ListEvidenceItems(ctx context.Context, sessionID, documentID uuid.UUID) ([]types.EvidenceItem, error)

	UpsertRole(ctx context.Context, role types.NewRole) (*types.Role, error)
	GetRole(ctx context.Context, roleID uuid.UUID) (*types.Role, error)
	ReplaceRoleRequirements(ctx context.Context, roleID uuid.UUID, reqs []types.NewRoleRequirement) error
	ListRoleRequirements(ctx context.Context, roleID uuid.UUID) ([]types.RoleRequirement, error)
}
