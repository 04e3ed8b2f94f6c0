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

// UpsertRole inserts a role or replaces the summary of the existing role with
// the same (role_title, onet_code, version).
func (s *Store) UpsertRole(ctx context.Context, in types.NewRole) (*types.Role, error) {
	summaryJSON, err := json.Marshal(in.SummaryOrEmpty())
	if err != nil {
		return nil, apperr.InvalidRequest("upsert_role", "summary is not JSON-serializable")
	}
	title, onetCode, version := in.IdentityKey()
	ts := now()

	var (
		role                 types.Role
		createdAt, updatedAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO roles (id, role_title, onet_code, version, summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (role_title, onet_code, version)
		 DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at
		 RETURNING id, created_at, updated_at`,
		uuid.New(), title, onetCode, version, string(summaryJSON), ts, ts,
	).Scan(&role.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, classify("upsert_role", err, apperr.CodeWriteFailed)
	}

	role.RoleTitle = title
	role.OnetCode = types.OptionalString(onetCode)
	role.Version = types.OptionalString(version)
	role.Summary = in.SummaryOrEmpty()
	role.CreatedAt = fromNanos(createdAt)
	role.UpdatedAt = fromNanos(updatedAt)
	return &role, nil
}

// GetRole returns the role or NOT_FOUND.
func (s *Store) GetRole(ctx context.Context, roleID uuid.UUID) (*types.Role, error) {
	var (
		role                 types.Role
		onetCode, version    string
		summary              string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, role_title, onet_code, version, summary, created_at, updated_at
		 FROM roles WHERE id = ?`, roleID,
	).Scan(&role.ID, &role.RoleTitle, &onetCode, &version, &summary, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get_role", "role")
	}
	if err != nil {
		return nil, classify("get_role", err, apperr.CodeReadFailed)
	}

	role.OnetCode = types.OptionalString(onetCode)
	role.Version = types.OptionalString(version)
	if role.Summary, err = decodeObject(summary); err != nil {
		return nil, classify("get_role", err, apperr.CodeReadFailed)
	}
	role.CreatedAt = fromNanos(createdAt)
	role.UpdatedAt = fromNanos(updatedAt)
	return &role, nil
}

// ReplaceRoleRequirements deletes the role's requirements and inserts reqs in
// one transaction. On failure the previous set is left untouched.
func (s *Store) ReplaceRoleRequirements(ctx context.Context, roleID uuid.UUID, reqs []types.NewRoleRequirement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to begin transaction: %w", err), apperr.CodeWriteFailed)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM roles WHERE id = ?`, roleID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("replace_requirements", "role")
	}
	if err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to look up role: %w", err), apperr.CodeWriteFailed)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_requirements WHERE role_id = ?`, roleID); err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to delete requirements: %w", err), apperr.CodeWriteFailed)
	}

	for i, req := range reqs {
		metaJSON, err := json.Marshal(req.MetadataOrEmpty())
		if err != nil {
			return apperr.InvalidRequest("replace_requirements", "metadata is not JSON-serializable")
		}
		var importance sql.NullFloat64
		if req.Importance != nil {
			importance = sql.NullFloat64{Float64: *req.Importance, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO role_requirements (id, role_id, req_type, label, importance, metadata, ordinal)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New(), roleID, string(req.ReqType), req.Label, importance, string(metaJSON), i,
		)
		if err != nil {
			return classify("replace_requirements", fmt.Errorf("failed to insert requirement %d: %w", i, err), apperr.CodeWriteFailed)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("replace_requirements", fmt.Errorf("failed to commit transaction: %w", err), apperr.CodeWriteFailed)
	}
	return nil
}

// ListRoleRequirements returns the role's requirements in the order they were supplied.
func (s *Store) ListRoleRequirements(ctx context.Context, roleID uuid.UUID) ([]types.RoleRequirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role_id, req_type, label, importance, metadata, ordinal
		 FROM role_requirements WHERE role_id = ? ORDER BY ordinal ASC`, roleID,
	)
	if err != nil {
		return nil, classify("list_requirements", err, apperr.CodeReadFailed)
	}
	defer rows.Close()

	reqs := []types.RoleRequirement{}
	for rows.Next() {
		var (
			req        types.RoleRequirement
			reqType    string
			importance sql.NullFloat64
			metadata   string
		)
		if err := rows.Scan(&req.ID, &req.RoleID, &reqType, &req.Label, &importance, &metadata, &req.Ordinal); err != nil {
			return nil, classify("list_requirements", err, apperr.CodeReadFailed)
		}
		req.ReqType = types.RequirementType(reqType)
		if importance.Valid {
			v := importance.Float64
			req.Importance = &v
		}
		if req.Metadata, err = decodeObject(metadata); err != nil {
			return nil, classify("list_requirements", err, apperr.CodeReadFailed)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_requirements", err, apperr.CodeReadFailed)
	}
	return reqs, nil
}
