package custody

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// Guard confirms a run belongs to the claimed session before it is touched.
//
// A run that exists under another session and a run that does not exist at all
// both fail with NOT_OWNED so callers cannot discover foreign IDs.
type Guard struct {
	store Store
}

// NewGuard returns a Guard over store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Verify performs one lookup filtered by both runID and sessionID.
func (g *Guard) Verify(ctx context.Context, sessionID, runID uuid.UUID) (*types.Run, error) {
	const op = "verify_ownership"
	if sessionID == uuid.Nil || runID == uuid.Nil {
		return nil, apperr.NotOwned(op)
	}
	run, err := g.store.GetRunForSession(ctx, sessionID, runID)
	if err != nil {
		return nil, apperr.Ensure(op, err, apperr.CodeReadFailed)
	}
	return run, nil
}
