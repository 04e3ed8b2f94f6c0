//nolint:revive // types is a standard Go package name pattern
package types

// SpecSourceType names where a role-spec requirement came from.
type SpecSourceType string

const (
	SpecSourceONET        SpecSourceType = "ONET"
	SpecSourceJobPostings SpecSourceType = "JOB_POSTINGS"
	SpecSourceCurated     SpecSourceType = "CURATED"
	SpecSourceUserInput   SpecSourceType = "USER_INPUT"
	SpecSourceInferred    SpecSourceType = "INFERRED"
)

// GapType classifies a gap between student evidence and a requirement.
type GapType string

const (
	GapMissing GapType = "missing"
	GapWeak    GapType = "weak"
)

// Artifact defaults
const (
	DefaultPriority            = 3
	DefaultRoleMatchConfidence = 0.7
	DefaultMilestoneWeeks      = 2
	DefaultTimelineWeeks       = 8
)

// StudentModel is the learner profile distilled from evidence.
type StudentModel struct {
	Skills      []string            `json:"skills"`
	Experiences []string            `json:"experiences"`
	Education   []string            `json:"education"`
	Constraints map[string]any      `json:"constraints"`
	EvidenceMap map[string][]string `json:"evidence_map"`
}

// RoleModel is the role baseline as retrieved from the occupational taxonomy.
type RoleModel struct {
	RoleTitle    string               `json:"role_title" validate:"required"`
	OnetCode     *string              `json:"onet_code,omitempty"`
	Version      *string              `json:"version,omitempty"`
	Summary      map[string]any       `json:"summary"`
	Requirements []NewRoleRequirement `json:"requirements" validate:"dive"`
}

// ProvenanceRef points at the rows or documents that justify a requirement.
type ProvenanceRef struct {
	SourceType SpecSourceType `json:"source_type" validate:"required,oneof=ONET JOB_POSTINGS CURATED USER_INPUT INFERRED"`
	SourceIDs  []string       `json:"source_ids"`
	Note       *string        `json:"note,omitempty"`
}

// RoleSpecRequirement is one curated requirement of the target role.
type RoleSpecRequirement struct {
	Label      string          `json:"label" validate:"required"`
	Category   RequirementType `json:"category" validate:"required,oneof=skill knowledge task tech"`
	Priority   int             `json:"priority" validate:"min=1,max=5"`
	Provenance []ProvenanceRef `json:"provenance" validate:"dive"`
	Optional   bool            `json:"optional"`
}

// RoleSpecModel is the curated specification of the target role.
type RoleSpecModel struct {
	CanonicalRoleTitle  string                `json:"canonical_role_title" validate:"required"`
	MatchedOnetCode     *string               `json:"matched_onet_code,omitempty"`
	ConfidenceRoleMatch float64               `json:"confidence_role_match" validate:"min=0,max=1"`
	Requirements        []RoleSpecRequirement `json:"requirements" validate:"dive"`
	Assumptions         []string              `json:"assumptions"`
}

// GapItem is one requirement the student does not yet meet.
type GapItem struct {
	Label           string          `json:"label" validate:"required"`
	Category        RequirementType `json:"category" validate:"required,oneof=skill knowledge task tech"`
	GapType         GapType         `json:"gap_type" validate:"required,oneof=missing weak"`
	EvidenceItemIDs []string        `json:"evidence_item_ids"`
	TargetPriority  int             `json:"target_priority" validate:"min=1,max=5"`
}

// GapReport summarizes gap analysis.
type GapReport struct {
	Summary string    `json:"summary"`
	Gaps    []GapItem `json:"gaps" validate:"dive"`
}

// PlanMilestone is one step of a career plan.
type PlanMilestone struct {
	Title     string   `json:"title" validate:"required"`
	Outcome   string   `json:"outcome" validate:"required"`
	Weeks     int      `json:"weeks" validate:"min=1"`
	Resources []string `json:"resources"`
}

// CareerPlan is the pathway produced by planning.
type CareerPlan struct {
	TimelineWeeks int             `json:"timeline_weeks" validate:"min=1"`
	Milestones    []PlanMilestone `json:"milestones" validate:"dive"`
	Projects      []string        `json:"projects"`
	Risks         []string        `json:"risks"`
}

// CritiqueReport is the critic's verdict on a plan.
type CritiqueReport struct {
	RubricScores map[string]int `json:"rubric_scores"`
	Issues       []string       `json:"issues"`
	Fixes        []string       `json:"fixes"`
	Satisfactory bool           `json:"satisfactory"`
}

// AgentState is the shared snapshot the orchestrator appends after each step.
// The log treats it as an opaque payload.
type AgentState struct {
	SessionID         string                `json:"session_id" validate:"required"`
	RunID             *string               `json:"run_id,omitempty"`
	DesiredRole       string                `json:"desired_role" validate:"required"`
	EvidenceDocuments []NewEvidenceDocument `json:"evidence_documents" validate:"dive"`
	EvidenceItems     []NewEvidenceItem     `json:"evidence_items" validate:"dive"`
	RawUserText       *string               `json:"raw_user_text,omitempty"`
	StudentModel      *StudentModel         `json:"student_model,omitempty"`
	RoleModel         *RoleModel            `json:"role_model,omitempty"`
	RoleSpec          *RoleSpecModel        `json:"role_spec,omitempty"`
	GapReport         *GapReport            `json:"gap_report,omitempty"`
	Plan              *CareerPlan           `json:"plan,omitempty"`
	Critique          *CritiqueReport       `json:"critique,omitempty"`
	Status            RunStatus             `json:"status" validate:"required,oneof=queued running done failed"`
	Step              *string               `json:"step,omitempty"`
	Errors            []string              `json:"errors"`
}

// NewRoleSpecRequirement returns a requirement with the default priority.
func NewRoleSpecRequirement(label string, category RequirementType) RoleSpecRequirement {
	return RoleSpecRequirement{
		Label:      label,
		Category:   category,
		Priority:   DefaultPriority,
		Provenance: []ProvenanceRef{},
	}
}

// NewRoleSpecModel returns a role spec with the default match confidence.
func NewRoleSpecModel(title string) RoleSpecModel {
	return RoleSpecModel{
		CanonicalRoleTitle:  title,
		ConfidenceRoleMatch: DefaultRoleMatchConfidence,
		Requirements:        []RoleSpecRequirement{},
		Assumptions:         []string{},
	}
}

// NewGapItem returns a missing-type gap at the default priority.
func NewGapItem(label string, category RequirementType) GapItem {
	return GapItem{
		Label:           label,
		Category:        category,
		GapType:         GapMissing,
		EvidenceItemIDs: []string{},
		TargetPriority:  DefaultPriority,
	}
}

// NewPlanMilestone returns a milestone with the default duration.
func NewPlanMilestone(title, outcome string) PlanMilestone {
	return PlanMilestone{
		Title:     title,
		Outcome:   outcome,
		Weeks:     DefaultMilestoneWeeks,
		Resources: []string{},
	}
}

// NewCareerPlan returns an empty plan with the default timeline.
func NewCareerPlan() CareerPlan {
	return CareerPlan{
		TimelineWeeks: DefaultTimelineWeeks,
		Milestones:    []PlanMilestone{},
		Projects:      []string{},
		Risks:         []string{},
	}
}

// NewAgentState returns the initial snapshot for a run.
func NewAgentState(sessionID, desiredRole string) AgentState {
	return AgentState{
		SessionID:         sessionID,
		DesiredRole:       desiredRole,
		EvidenceDocuments: []NewEvidenceDocument{},
		EvidenceItems:     []NewEvidenceItem{},
		Status:            RunStatusQueued,
		Errors:            []string{},
	}
}
