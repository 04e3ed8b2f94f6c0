package schemas

import (
	"testing"

	schemafiles "github.com/jonathan/pathway-advisor/schemas"
	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateValidator_LoadsEmbeddedSchema(t *testing.T) {
	v, err := NewStateValidator()
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestValidatePayload(t *testing.T) {
	v, err := NewStateValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload map[string]any
		wantErr bool
	}{
		{"minimal step payload", map[string]any{"ok": true}, false},
		{"empty object", map[string]any{}, false},
		{"counts only", map[string]any{"items": 2}, false},
		{"valid status", map[string]any{"status": "running"}, false},
		{"unknown status", map[string]any{"status": "paused"}, true},
		{"unknown step", map[string]any{"step": "dreaming"}, true},
		{
			name: "evidence item confidence out of range",
			payload: map[string]any{
				"evidence_items": []any{
					map[string]any{"item_type": "skill", "label": "SQL", "confidence": 1.5},
				},
			},
			wantErr: true,
		},
		{
			name: "milestone weeks below one",
			payload: map[string]any{
				"plan": map[string]any{
					"timeline_weeks": 8,
					"milestones": []any{
						map[string]any{"title": "SQL", "outcome": "fluency", "weeks": 0},
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePayload(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.NotEmpty(t, verr.Summary())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePayload_TypedArtifacts(t *testing.T) {
	v, err := NewStateValidator()
	require.NoError(t, err)

	state := types.NewAgentState("s1", "Data Analyst")
	rs := types.NewRoleSpecModel("Data Analyst")
	rs.Requirements = append(rs.Requirements, types.NewRoleSpecRequirement("SQL", types.RequirementSkill))
	state.RoleSpec = &rs
	gaps := types.GapReport{Gaps: []types.GapItem{types.NewGapItem("Statistics", types.RequirementKnowledge)}}
	state.GapReport = &gaps
	plan := types.NewCareerPlan()
	plan.Milestones = append(plan.Milestones, types.NewPlanMilestone("Learn SQL", "Query fluency"))
	state.Plan = &plan

	payload, err := types.ToPayload(state)
	require.NoError(t, err)
	assert.NoError(t, v.ValidatePayload(payload))
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(schemafiles.AgentState, []byte(`{"ok": true}`)))

	err := ValidateDocument(schemafiles.AgentState, []byte(`{ invalid json }`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	err = ValidateDocument("missing.schema.json", []byte(`{}`))
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "missing.schema.json")
}
