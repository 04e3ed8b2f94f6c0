package custody

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// UpsertRole inserts the role or overwrites the summary of the role with the
// same (title, onet code, version) identity. Returns the role ID.
func (s *Service) UpsertRole(ctx context.Context, role types.NewRole) (uuid.UUID, error) {
	const op = "upsert_role"
	role.RoleTitle = strings.TrimSpace(role.RoleTitle)
	if err := validateStruct(op, role); err != nil {
		return uuid.Nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	saved, err := s.store.UpsertRole(ctx, role)
	if err != nil {
		return uuid.Nil, s.finish(op, uuid.Nil, err, apperr.CodeWriteFailed)
	}
	return saved.ID, nil
}

// ReplaceRequirements swaps the role's requirement set atomically. An empty
// set leaves the role with no requirements.
func (s *Service) ReplaceRequirements(ctx context.Context, roleID uuid.UUID, reqs []types.NewRoleRequirement) error {
	const op = "replace_requirements"
	if err := requireID(op, "role id", roleID); err != nil {
		return err
	}
	set := make([]types.NewRoleRequirement, len(reqs))
	for i, req := range reqs {
		req.Label = strings.TrimSpace(req.Label)
		if err := types.Validate(req); err != nil {
			return apperr.InvalidRequest(op, fmt.Sprintf("requirement %d: %v", i, err))
		}
		set[i] = req
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	return s.finish(op, roleID, s.store.ReplaceRoleRequirements(ctx, roleID, set), apperr.CodeWriteFailed)
}

// Role fetches a cached role. A missing role is NOT_FOUND.
func (s *Service) Role(ctx context.Context, roleID uuid.UUID) (*types.Role, error) {
	const op = "get_role"
	if err := requireID(op, "role id", roleID); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, s.finish(op, roleID, err, apperr.CodeReadFailed)
	}
	return role, nil
}

// Requirements returns the role's requirements in the order they were supplied.
func (s *Service) Requirements(ctx context.Context, roleID uuid.UUID) ([]types.RoleRequirement, error) {
	const op = "list_requirements"
	if err := requireID(op, "role id", roleID); err != nil {
		return nil, err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	reqs, err := s.store.ListRoleRequirements(ctx, roleID)
	if err != nil {
		return nil, s.finish(op, roleID, err, apperr.CodeReadFailed)
	}
	return reqs, nil
}
