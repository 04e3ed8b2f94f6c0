//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_Valid(t *testing.T) {
	for _, s := range []RunStatus{RunStatusQueued, RunStatusRunning, RunStatusDone, RunStatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, RunStatus("paused").Valid())
	assert.False(t, RunStatus("").Valid())
}

func TestConsentLevel_AtLeast(t *testing.T) {
	tests := []struct {
		name  string
		level ConsentLevel
		other ConsentLevel
		want  bool
	}{
		{"derived vs derived", ConsentDerivedOnly, ConsentDerivedOnly, true},
		{"derived vs excerpt", ConsentDerivedOnly, ConsentExcerptOK, false},
		{"excerpt vs derived", ConsentExcerptOK, ConsentDerivedOnly, true},
		{"excerpt vs raw", ConsentExcerptOK, ConsentRawOK, false},
		{"raw vs excerpt", ConsentRawOK, ConsentExcerptOK, true},
		{"unknown is never permissive", ConsentLevel("everything"), ConsentDerivedOnly, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.AtLeast(tt.other))
		})
	}
}

func TestNewEvidenceDocument_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     NewEvidenceDocument
		wantErr bool
	}{
		{
			name: "valid with default consent",
			doc:  NewEvidenceDocument{SourceType: SourceResume, ContentHash: "sha256:abc"},
		},
		{
			name: "valid raw consent",
			doc:  NewEvidenceDocument{SourceType: SourcePortfolio, ContentHash: "h", ConsentLevel: ConsentRawOK},
		},
		{
			name:    "unknown source type",
			doc:     NewEvidenceDocument{SourceType: "diary", ContentHash: "h"},
			wantErr: true,
		},
		{
			name:    "missing hash",
			doc:     NewEvidenceDocument{SourceType: SourceResume},
			wantErr: true,
		},
		{
			name:    "unknown consent",
			doc:     NewEvidenceDocument{SourceType: SourceResume, ContentHash: "h", ConsentLevel: "public"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEvidenceDocument_WithDefaults(t *testing.T) {
	doc := NewEvidenceDocument{SourceType: SourceResume, ContentHash: "h"}.WithDefaults()
	assert.Equal(t, ConsentDerivedOnly, doc.ConsentLevel)

	raw := NewEvidenceDocument{SourceType: SourceResume, ContentHash: "h", ConsentLevel: ConsentRawOK}.WithDefaults()
	assert.Equal(t, ConsentRawOK, raw.ConsentLevel)
}

func TestNewEvidenceItem_Confidence(t *testing.T) {
	zero := 0.0
	half := 0.5
	tooHigh := 1.5

	assert.InDelta(t, DefaultItemConfidence, NewEvidenceItem{}.ConfidenceOrDefault(), 1e-9)
	assert.InDelta(t, 0.0, NewEvidenceItem{Confidence: &zero}.ConfidenceOrDefault(), 1e-9)
	assert.InDelta(t, 0.5, NewEvidenceItem{Confidence: &half}.ConfidenceOrDefault(), 1e-9)

	assert.NoError(t, Validate(NewEvidenceItem{ItemType: ItemSkill, Label: "SQL", Confidence: &zero}))
	err := Validate(NewEvidenceItem{ItemType: ItemSkill, Label: "SQL", Confidence: &tooHigh})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Confidence")
}

func TestNewEvidenceItem_MetadataOrEmpty(t *testing.T) {
	assert.NotNil(t, NewEvidenceItem{}.MetadataOrEmpty())
	assert.Equal(t, "x", NewEvidenceItem{Metadata: map[string]any{"k": "x"}}.MetadataOrEmpty()["k"])
}

func TestNewRole_IdentityKey(t *testing.T) {
	code := "15-2051.00"

	title, onet, version := NewRole{RoleTitle: "Data Analyst"}.IdentityKey()
	assert.Equal(t, "Data Analyst", title)
	assert.Empty(t, onet)
	assert.Empty(t, version)

	_, onet, _ = NewRole{RoleTitle: "Data Analyst", OnetCode: &code}.IdentityKey()
	assert.Equal(t, code, onet)

	assert.Nil(t, OptionalString(""))
	require.NotNil(t, OptionalString(code))
	assert.Equal(t, code, *OptionalString(code))
}

func TestNewRoleRequirement_Validation(t *testing.T) {
	assert.NoError(t, Validate(NewRoleRequirement{ReqType: RequirementTech, Label: "Tableau"}))
	assert.Error(t, Validate(NewRoleRequirement{ReqType: "hobby", Label: "Chess"}))
	assert.Error(t, Validate(NewRoleRequirement{ReqType: RequirementSkill}))
}

func TestArtifactDefaults(t *testing.T) {
	rs := NewRoleSpecModel("Data Analyst")
	assert.InDelta(t, 0.7, rs.ConfidenceRoleMatch, 1e-9)

	req := NewRoleSpecRequirement("SQL", RequirementSkill)
	assert.Equal(t, 3, req.Priority)

	gap := NewGapItem("Statistics", RequirementKnowledge)
	assert.Equal(t, GapMissing, gap.GapType)
	assert.Equal(t, 3, gap.TargetPriority)

	assert.Equal(t, 2, NewPlanMilestone("Learn SQL", "Query fluency").Weeks)
	assert.Equal(t, 8, NewCareerPlan().TimelineWeeks)

	state := NewAgentState("s1", "Data Analyst")
	assert.Equal(t, RunStatusQueued, state.Status)
	assert.NoError(t, Validate(state))
}

func TestArtifactBounds(t *testing.T) {
	req := NewRoleSpecRequirement("SQL", RequirementSkill)
	req.Priority = 6
	assert.Error(t, Validate(req))

	rs := NewRoleSpecModel("Data Analyst")
	rs.ConfidenceRoleMatch = 1.2
	assert.Error(t, Validate(rs))

	m := NewPlanMilestone("Learn SQL", "Query fluency")
	m.Weeks = 0
	assert.Error(t, Validate(m))

	plan := NewCareerPlan()
	plan.Milestones = append(plan.Milestones, m)
	assert.Error(t, Validate(plan), "milestones are validated through dive")
}

func TestToPayload_FromPayload(t *testing.T) {
	state := NewAgentState("s1", "Data Analyst")
	plan := NewCareerPlan()
	plan.Milestones = append(plan.Milestones, NewPlanMilestone("Learn SQL", "Query fluency"))
	state.Plan = &plan

	payload, err := ToPayload(state)
	require.NoError(t, err)
	assert.Equal(t, "Data Analyst", payload["desired_role"])
	assert.Equal(t, "queued", payload["status"])
	assert.NotContains(t, payload, "role_spec")

	decoded, err := FromPayload[AgentState](payload)
	require.NoError(t, err)
	require.NotNil(t, decoded.Plan)
	assert.Equal(t, "Learn SQL", decoded.Plan.Milestones[0].Title)
	assert.Equal(t, 2, decoded.Plan.Milestones[0].Weeks)
}

func TestToPayload_RejectsNonObject(t *testing.T) {
	_, err := ToPayload([]string{"a"})
	assert.Error(t, err)
}

func TestRunStateEntry_JSON(t *testing.T) {
	entry := RunStateEntry{Step: StepRoleIntake, State: map[string]any{"ok": true}, ContainsFreeText: true}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"step":"role_intake"`)
	assert.Contains(t, string(data), `"contains_free_text":true`)
	assert.Contains(t, string(data), `"state":{"ok":true}`)
}
