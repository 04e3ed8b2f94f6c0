package server

import (
	"net/http"

	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/labstack/echo/v4"
)

// ReplaceRequirementsRequest is the body of PUT /v1/roles/:role_id/requirements.
type ReplaceRequirementsRequest struct {
	Requirements []types.NewRoleRequirement `json:"requirements"`
}

// handleUpsertRole caches a role summary under its identity.
// PUT /v1/roles
func (s *Server) handleUpsertRole(c echo.Context) error {
	var req types.NewRole
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	roleID, err := s.svc.UpsertRole(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"id": roleID})
}

// handleGetRole returns a cached role.
// GET /v1/roles/:role_id
func (s *Server) handleGetRole(c echo.Context) error {
	roleID, err := pathID(c, "role_id")
	if err != nil {
		return writeError(c, err)
	}

	role, err := s.svc.Role(c.Request().Context(), roleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// handleReplaceRequirements swaps a role's requirement set.
// PUT /v1/roles/:role_id/requirements
func (s *Server) handleReplaceRequirements(c echo.Context) error {
	roleID, err := pathID(c, "role_id")
	if err != nil {
		return writeError(c, err)
	}

	var req ReplaceRequirementsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Requirements == nil {
		return badRequest(c, "requirements is required; send [] to clear")
	}

	if err := s.svc.ReplaceRequirements(c.Request().Context(), roleID, req.Requirements); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleListRequirements returns a role's requirements in supplied order.
// GET /v1/roles/:role_id/requirements
func (s *Server) handleListRequirements(c echo.Context) error {
	roleID, err := pathID(c, "role_id")
	if err != nil {
		return writeError(c, err)
	}

	reqs, err := s.svc.Requirements(c.Request().Context(), roleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"requirements": reqs})
}
