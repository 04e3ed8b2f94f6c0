//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// RequirementType classifies a role requirement.
type RequirementType string

const (
	RequirementSkill     RequirementType = "skill"
	RequirementKnowledge RequirementType = "knowledge"
	RequirementTask      RequirementType = "task"
	RequirementTech      RequirementType = "tech"
)

// Role is a cached role baseline keyed by (RoleTitle, OnetCode, Version).
type Role struct {
	ID        uuid.UUID      `json:"id"`
	RoleTitle string         `json:"role_title"`
	OnetCode  *string        `json:"onet_code,omitempty"`
	Version   *string        `json:"version,omitempty"`
	Summary   map[string]any `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RoleRequirement is one requirement row owned by a role.
type RoleRequirement struct {
	ID         uuid.UUID       `json:"id"`
	RoleID     uuid.UUID       `json:"role_id"`
	ReqType    RequirementType `json:"req_type"`
	Label      string          `json:"label"`
	Importance *float64        `json:"importance,omitempty"`
	Metadata   map[string]any  `json:"metadata"`
	Ordinal    int             `json:"ordinal"`
}

// NewRole holds the identity and summary for an upsert.
type NewRole struct {
	RoleTitle string         `json:"role_title" validate:"required,max=200"`
	OnetCode  *string        `json:"onet_code,omitempty" validate:"omitempty,max=20"`
	Version   *string        `json:"version,omitempty" validate:"omitempty,max=50"`
	Summary   map[string]any `json:"summary"`
}

// NewRoleRequirement holds the attributes of one requirement in a replacement set.
type NewRoleRequirement struct {
	ReqType    RequirementType `json:"req_type" validate:"required,oneof=skill knowledge task tech"`
	Label      string          `json:"label" validate:"required,max=500"`
	Importance *float64        `json:"importance,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// IdentityKey returns the stored form of the identity tuple. Absent parts are
// stored as empty strings so the tuple compares equal under a unique index.
func (r NewRole) IdentityKey() (title, onetCode, version string) {
	return r.RoleTitle, deref(r.OnetCode), deref(r.Version)
}

// SummaryOrEmpty never returns nil.
func (r NewRole) SummaryOrEmpty() map[string]any {
	if r.Summary == nil {
		return map[string]any{}
	}
	return r.Summary
}

// MetadataOrEmpty never returns nil.
func (r NewRoleRequirement) MetadataOrEmpty() map[string]any {
	if r.Metadata == nil {
		return map[string]any{}
	}
	return r.Metadata
}

// OptionalString maps the stored empty string back to an absent value.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
