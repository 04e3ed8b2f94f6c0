//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// SourceType classifies an evidence document.
type SourceType string

const (
	SourceResume     SourceType = "resume"
	SourceTranscript SourceType = "transcript"
	SourcePortfolio  SourceType = "portfolio"
	SourceJobPosting SourceType = "job_posting"
	SourceOther      SourceType = "other"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceResume, SourceTranscript, SourcePortfolio, SourceJobPosting, SourceOther:
		return true
	}
	return false
}

// ConsentLevel governs what consumers may surface from a document.
// Levels are ordered from least to most permissive.
type ConsentLevel string

const (
	ConsentDerivedOnly ConsentLevel = "derived_only"
	ConsentExcerptOK   ConsentLevel = "excerpt_ok"
	ConsentRawOK       ConsentLevel = "raw_ok"
)

// Rank returns the permissiveness of the level, or -1 for unknown levels.
func (c ConsentLevel) Rank() int {
	switch c {
	case ConsentDerivedOnly:
		return 0
	case ConsentExcerptOK:
		return 1
	case ConsentRawOK:
		return 2
	}
	return -1
}

// Valid reports whether c is a known consent level.
func (c ConsentLevel) Valid() bool {
	return c.Rank() >= 0
}

// AtLeast reports whether c is at least as permissive as other.
// An unknown level is never permissive.
func (c ConsentLevel) AtLeast(other ConsentLevel) bool {
	return c.Valid() && c.Rank() >= other.Rank()
}

// ItemType classifies an extracted evidence item.
type ItemType string

const (
	ItemSkill      ItemType = "skill"
	ItemExperience ItemType = "experience"
	ItemProject    ItemType = "project"
	ItemCoursework ItemType = "coursework"
	ItemClaim      ItemType = "claim"
)

// DefaultItemConfidence is applied when an item is registered without a confidence.
const DefaultItemConfidence = 0.8

// EvidenceDocument is a registered source document. The raw bytes live elsewhere;
// StorageRef points at them.
type EvidenceDocument struct {
	ID           uuid.UUID    `json:"id"`
	SessionID    uuid.UUID    `json:"session_id"`
	SourceType   SourceType   `json:"source_type"`
	ContentHash  string       `json:"content_hash"`
	StorageRef   *string      `json:"storage_ref,omitempty"`
	ConsentLevel ConsentLevel `json:"consent_level"`
	CreatedAt    time.Time    `json:"created_at"`
}

// EvidenceItem is a fact extracted from a document.
type EvidenceItem struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID uuid.UUID      `json:"document_id"`
	ItemType   ItemType       `json:"item_type"`
	Label      string         `json:"label"`
	Snippet    *string        `json:"snippet,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEvidenceDocument holds the attributes for registering a document.
type NewEvidenceDocument struct {
	SourceType   SourceType   `json:"source_type" validate:"required,oneof=resume transcript portfolio job_posting other"`
	ContentHash  string       `json:"content_hash" validate:"required,max=200"`
	StorageRef   *string      `json:"storage_ref,omitempty" validate:"omitempty,max=2048"`
	ConsentLevel ConsentLevel `json:"consent_level,omitempty" validate:"omitempty,oneof=derived_only excerpt_ok raw_ok"`
}

// NewEvidenceItem holds the attributes for one item in a registration batch.
// A nil Confidence means DefaultItemConfidence.
type NewEvidenceItem struct {
	ItemType   ItemType       `json:"item_type" validate:"required,oneof=skill experience project coursework claim"`
	Label      string         `json:"label" validate:"required,max=500"`
	Snippet    *string        `json:"snippet,omitempty"`
	Confidence *float64       `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WithDefaults returns a copy of the document input with the default consent applied.
func (d NewEvidenceDocument) WithDefaults() NewEvidenceDocument {
	if d.ConsentLevel == "" {
		d.ConsentLevel = ConsentDerivedOnly
	}
	return d
}

// ConfidenceOrDefault returns the item's confidence or DefaultItemConfidence.
func (i NewEvidenceItem) ConfidenceOrDefault() float64 {
	if i.Confidence == nil {
		return DefaultItemConfidence
	}
	return *i.Confidence
}

// MetadataOrEmpty never returns nil so payload columns always hold an object.
func (i NewEvidenceItem) MetadataOrEmpty() map[string]any {
	if i.Metadata == nil {
		return map[string]any{}
	}
	return i.Metadata
}
