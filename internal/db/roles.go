package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// -----------------------------------------------------------------------------
// Role Requirement Cache Methods
// -----------------------------------------------------------------------------

// UpsertRole inserts a role or replaces the summary of the role with the same identity
func (db *DB) UpsertRole(ctx context.Context, in types.NewRole) (*types.Role, error) {
	summaryJSON, err := json.Marshal(in.SummaryOrEmpty())
	if err != nil {
		return nil, apperr.InvalidRequest("upsert_role", "summary is not JSON-serializable")
	}
	title, onetCode, version := in.IdentityKey()

	var role types.Role
	err = db.pool.QueryRow(ctx,
		`INSERT INTO roles (role_title, onet_code, version, summary)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (role_title, onet_code, version)
		 DO UPDATE SET summary = EXCLUDED.summary, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		title, onetCode, version, summaryJSON,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, classify("upsert_role", err, apperr.CodeWriteFailed)
	}

	role.RoleTitle = title
	role.OnetCode = types.OptionalString(onetCode)
	role.Version = types.OptionalString(version)
	role.Summary = in.SummaryOrEmpty()
	return &role, nil
}

// GetRole retrieves a role by ID
func (db *DB) GetRole(ctx context.Context, roleID uuid.UUID) (*types.Role, error) {
	var (
		role              types.Role
		onetCode, version string
		summaryJSON       []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, role_title, onet_code, version, summary, created_at, updated_at
		 FROM roles WHERE id = $1`, roleID,
	).Scan(&role.ID, &role.RoleTitle, &onetCode, &version, &summaryJSON, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("get_role", "role")
		}
		return nil, classify("get_role", err, apperr.CodeReadFailed)
	}

	role.OnetCode = types.OptionalString(onetCode)
	role.Version = types.OptionalString(version)
	role.Summary = map[string]any{}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &role.Summary); err != nil {
			return nil, classify("get_role", fmt.Errorf("failed to unmarshal summary: %w", err), apperr.CodeReadFailed)
		}
	}
	return &role, nil
}

// ReplaceRoleRequirements swaps the role's requirement set in one transaction
func (db *DB) ReplaceRoleRequirements(ctx context.Context, roleID uuid.UUID, reqs []types.NewRoleRequirement) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to begin transaction: %w", err), apperr.CodeWriteFailed)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Row lock serializes concurrent replaces of the same role.
	var locked int
	err = tx.QueryRow(ctx, `SELECT 1 FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("replace_requirements", "role")
	}
	if err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to lock role: %w", err), apperr.CodeWriteFailed)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM role_requirements WHERE role_id = $1`, roleID); err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to delete requirements: %w", err), apperr.CodeWriteFailed)
	}

	for i, req := range reqs {
		metaJSON, err := json.Marshal(req.MetadataOrEmpty())
		if err != nil {
			return apperr.InvalidRequest("replace_requirements", "metadata is not JSON-serializable")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO role_requirements (role_id, req_type, label, importance, metadata, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			roleID, string(req.ReqType), req.Label, req.Importance, metaJSON, i,
		)
		if err != nil {
			return classify("replace_requirements", fmt.Errorf("failed to insert requirement %d: %w", i, err), apperr.CodeWriteFailed)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to commit transaction: %w", err), apperr.CodeWriteFailed)
	}
	return nil
}

// ListRoleRequirements returns the role's requirements in supplied order
func (db *DB) ListRoleRequirements(ctx context.Context, roleID uuid.UUID) ([]types.RoleRequirement, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, role_id, req_type, label, importance, metadata, ordinal
		 FROM role_requirements WHERE role_id = $1 ORDER BY ordinal ASC`, roleID,
	)
	if err != nil {
		return nil, classify("list_requirements", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	reqs := []types.RoleRequirement{}
	for rows.Next() {
		var (
			req      types.RoleRequirement
			reqType  string
			metaJSON []byte
		)
		if err := rows.Scan(&req.ID, &req.RoleID, &reqType, &req.Label, &req.Importance, &metaJSON, &req.Ordinal); err != nil {
			return nil, classify("list_requirements", fmt.Errorf("failed to scan requirement: %w", err), apperr.CodeReadFailed)
		}
		req.ReqType = types.RequirementType(reqType)
		req.Metadata = map[string]any{}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &req.Metadata); err != nil {
				return nil, classify("list_requirements", fmt.Errorf("failed to unmarshal metadata: %w", err), apperr.CodeReadFailed)
			}
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_requirements", err, apperr.CodeReadFailed)
	}
	return reqs, nil
}
