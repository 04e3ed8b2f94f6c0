package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/sqlite"
)

// testSetup creates handlers over a temporary SQLite store.
func testSetup(t *testing.T) (*custody.Service, *consent.Engine, *Handlers) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))

	engine, err := consent.NewDefaultEngine(ctx)
	require.NoError(t, err)

	svc := custody.New(store, custody.WithLogger(log.New(io.Discard, "", 0)))
	return svc, engine, NewHandlers(svc, engine)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "expected success, got error: %s", extractText(result))
	var output map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractText(result)), &output))
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	require.True(t, result.IsError, "expected error result, got: %s", extractText(result))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractText(result)), &payload))
	errorObj, ok := payload["error"].(map[string]any)
	require.True(t, ok, "no error object in payload")
	assert.Equal(t, expectedCode, errorObj["code"])
}

func extractText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func newSessionAndRun(t *testing.T, h *Handlers) (string, string) {
	t.Helper()
	sess := parseOutput(t, call(t, h.HandleSessionCreate, map[string]any{}))
	run := parseOutput(t, call(t, h.HandleRunCreate, map[string]any{
		"session_id":   sess["id"],
		"desired_role": "Data Analyst",
	}))
	return sess["id"].(string), run["id"].(string)
}

func TestHandleRunCreate(t *testing.T) {
	_, _, h := testSetup(t)
	sess := parseOutput(t, call(t, h.HandleSessionCreate, map[string]any{}))

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "valid run",
			args:      map[string]any{"session_id": sess["id"], "desired_role": "Data Analyst"},
			wantError: false,
		},
		{
			name:      "missing session",
			args:      map[string]any{"desired_role": "Data Analyst"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "blank role",
			args:      map[string]any{"session_id": sess["id"], "desired_role": "   "},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "unknown status",
			args:      map[string]any{"session_id": sess["id"], "desired_role": "Data Analyst", "status": "paused"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"session_id": 42, "desired_role": "Data Analyst"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, h.HandleRunCreate, tt.args)
			if tt.wantError {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			out := parseOutput(t, result)
			assert.Equal(t, "queued", out["status"])
		})
	}
}

func TestRunStateTools(t *testing.T) {
	_, _, h := testSetup(t)
	sid, rid := newSessionAndRun(t, h)
	ref := map[string]any{"session_id": sid, "run_id": rid}

	out := parseOutput(t, call(t, h.HandleRunStateLatest, ref))
	assert.Nil(t, out["entry"])

	first := parseOutput(t, call(t, h.HandleRunStateAppend, map[string]any{
		"session_id": sid,
		"run_id":     rid,
		"step":       "role_intake",
		"state":      map[string]any{"status": "running"},
	}))
	// No state argument stores an empty object.
	second := parseOutput(t, call(t, h.HandleRunStateAppend, map[string]any{
		"session_id": sid,
		"run_id":     rid,
		"step":       "evidence_ingestion",
	}))

	out = parseOutput(t, call(t, h.HandleRunStateLatest, ref))
	latest := out["entry"].(map[string]any)
	assert.Equal(t, second["id"], latest["id"])
	assert.Equal(t, map[string]any{}, latest["state"])

	out = parseOutput(t, call(t, h.HandleRunStateHistory, ref))
	assert.EqualValues(t, 2, out["count"])
	entries := out["entries"].([]any)
	assert.Equal(t, first["id"], entries[0].(map[string]any)["id"])

	out = parseOutput(t, call(t, h.HandleRunSetStatus, map[string]any{
		"session_id": sid,
		"run_id":     rid,
		"status":     "running",
	}))
	assert.Equal(t, "running", out["status"])
}

func TestRunStateTools_ForeignSession(t *testing.T) {
	_, _, h := testSetup(t)
	_, rid := newSessionAndRun(t, h)
	intruder, _ := newSessionAndRun(t, h)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
	}{
		{"append", h.HandleRunStateAppend, map[string]any{"session_id": intruder, "run_id": rid, "step": "critique"}},
		{"latest", h.HandleRunStateLatest, map[string]any{"session_id": intruder, "run_id": rid}},
		{"history", h.HandleRunStateHistory, map[string]any{"session_id": intruder, "run_id": rid}},
		{"set status", h.HandleRunSetStatus, map[string]any{"session_id": intruder, "run_id": rid, "status": "done"}},
		{"missing run", h.HandleRunStateLatest, map[string]any{"session_id": intruder, "run_id": uuid.NewString()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, tt.handler, tt.args)
			assertErrorCode(t, result, "NOT_OWNED")
			assert.NotContains(t, extractText(result), rid)
		})
	}
}

func TestEvidenceTools(t *testing.T) {
	_, _, h := testSetup(t)
	sid, _ := newSessionAndRun(t, h)

	doc := parseOutput(t, call(t, h.HandleEvidenceRegisterDocument, map[string]any{
		"session_id":    sid,
		"source_type":   "resume",
		"content":       "SQL, Python, dashboards",
		"consent_level": "excerpt_ok",
		"storage_ref":   "s3://bucket/resume.pdf",
	}))
	assert.True(t, strings.HasPrefix(doc["content_hash"].(string), "sha256:"))
	docID := doc["id"].(string)

	long := strings.Repeat("a", 500)
	out := parseOutput(t, call(t, h.HandleEvidenceRegisterItems, map[string]any{
		"session_id":  sid,
		"document_id": docID,
		"items": []any{
			map[string]any{"item_type": "skill", "label": "SQL", "snippet": long},
			map[string]any{"item_type": "skill", "label": "Python", "confidence": 0.95},
		},
	}))
	assert.EqualValues(t, 2, out["count"])

	out = parseOutput(t, call(t, h.HandleEvidenceItems, map[string]any{
		"session_id":  sid,
		"document_id": docID,
	}))
	document := out["document"].(map[string]any)
	assert.NotContains(t, document, "storage_ref")
	items := out["items"].([]any)
	require.Len(t, items, 2)
	assert.Len(t, items[0].(map[string]any)["snippet"], 280)
	assert.EqualValues(t, 0.8, items[0].(map[string]any)["confidence"])
	assert.EqualValues(t, 0.95, items[1].(map[string]any)["confidence"])

	t.Run("invalid item rejects whole batch", func(t *testing.T) {
		result := call(t, h.HandleEvidenceRegisterItems, map[string]any{
			"session_id":  sid,
			"document_id": docID,
			"items": []any{
				map[string]any{"item_type": "skill", "label": "Go"},
				map[string]any{"item_type": "hobby", "label": "Chess"},
			},
		})
		assertErrorCode(t, result, "INVALID_REQUEST")

		out := parseOutput(t, call(t, h.HandleEvidenceItems, map[string]any{"session_id": sid, "document_id": docID}))
		assert.Len(t, out["items"], 2)
	})

	t.Run("foreign session", func(t *testing.T) {
		other, _ := newSessionAndRun(t, h)
		result := call(t, h.HandleEvidenceItems, map[string]any{"session_id": other, "document_id": docID})
		assertErrorCode(t, result, "NOT_OWNED")
	})

	t.Run("missing hash and content", func(t *testing.T) {
		result := call(t, h.HandleEvidenceRegisterDocument, map[string]any{
			"session_id":  sid,
			"source_type": "resume",
		})
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

func TestRoleTools(t *testing.T) {
	_, _, h := testSetup(t)

	out := parseOutput(t, call(t, h.HandleRoleUpsert, map[string]any{
		"role_title": "Data Analyst",
		"onet_code":  "15-2051.01",
		"summary":    map[string]any{"source": "onet"},
	}))
	roleID := out["id"].(string)

	out = parseOutput(t, call(t, h.HandleRoleReplaceRequirements, map[string]any{
		"role_id": roleID,
		"requirements": []any{
			map[string]any{"req_type": "skill", "label": "SQL", "importance": 0.9},
			map[string]any{"req_type": "knowledge", "label": "Statistics"},
		},
	}))
	assert.EqualValues(t, 2, out["count"])

	out = parseOutput(t, call(t, h.HandleRoleRequirements, map[string]any{"role_id": roleID}))
	assert.Equal(t, "Data Analyst", out["role"].(map[string]any)["role_title"])
	reqs := out["requirements"].([]any)
	require.Len(t, reqs, 2)
	assert.Equal(t, "SQL", reqs[0].(map[string]any)["label"])

	result := call(t, h.HandleRoleReplaceRequirements, map[string]any{"role_id": roleID})
	assertErrorCode(t, result, "INVALID_REQUEST")

	parseOutput(t, call(t, h.HandleRoleReplaceRequirements, map[string]any{"role_id": roleID, "requirements": []any{}}))
	out = parseOutput(t, call(t, h.HandleRoleRequirements, map[string]any{"role_id": roleID}))
	assert.Empty(t, out["requirements"])

	result = call(t, h.HandleRoleRequirements, map[string]any{"role_id": uuid.NewString()})
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestServerRegistration(t *testing.T) {
	svc, engine, _ := testSetup(t)

	s := NewServer(svc, engine, "test")
	tools := s.ListTools()
	require.NotNil(t, tools)

	expected := []string{
		"session_create",
		"run_create",
		"run_set_status",
		"run_state_append",
		"run_state_latest",
		"run_state_history",
		"evidence_register_document",
		"evidence_register_items",
		"evidence_items",
		"role_upsert",
		"role_replace_requirements",
		"role_requirements",
	}
	assert.Len(t, tools, len(expected))
	for _, name := range expected {
		assert.Contains(t, tools, name)
	}
	assert.ElementsMatch(t, expected, AllToolNames())
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	svc, engine, _ := testSetup(t)

	s := NewServer(svc, engine, "test", "role_upsert", "role_replace_requirements")
	tools := s.ListTools()

	assert.Len(t, tools, len(toolRegistry)-2)
	assert.NotContains(t, tools, "role_upsert")
	assert.Contains(t, tools, "role_requirements")
}

func TestValidateDisabledTools(t *testing.T) {
	assert.Empty(t, ValidateDisabledTools([]string{"run_create", "evidence_items"}))
	assert.Equal(t, []string{"capsule_store"}, ValidateDisabledTools([]string{"run_create", "capsule_store"}))
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	result := errorResult(errors.New("pq: password authentication failed for user admin"))

	assert.True(t, result.IsError)
	text := extractText(result)
	assert.NotContains(t, text, "password")
	assertErrorCode(t, result, "INTERNAL")
}

func TestErrorResult_RetryableIsReported(t *testing.T) {
	result := errorResult(apperr.WriteFailed("append", errors.New("deadlock detected"), true))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractText(result)), &payload))
	errorObj := payload["error"].(map[string]any)
	assert.Equal(t, "WRITE_FAILED", errorObj["code"])
	assert.Equal(t, true, errorObj["retryable"])
	assert.EqualValues(t, 503, errorObj["status"])
	assert.NotContains(t, extractText(result), "deadlock")
}
