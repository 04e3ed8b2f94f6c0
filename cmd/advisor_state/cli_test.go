package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command in-process with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{
		config.EnvDatabaseURL,
		config.EnvStoreTimeoutMS,
		config.EnvDBMaxConns,
		config.EnvHTTPPort,
		config.EnvValidatePayloads,
		config.EnvConsentPolicyPath,
		config.EnvShutdownTimeoutMS,
	} {
		t.Setenv(key, "")
	}

	configPath, databaseURL, verbose = "", "", false
	smokeRole, smokeConcurrency = "Software Engineer", 0
	stateSessionID, stateRunID = "", ""
	evidenceSessionID, evidenceDocumentID = "", ""
	evidenceFile, evidenceSourceType, evidenceConsent, evidenceItemsFile = "", "resume", "", ""
	mcpDisabledTools = nil

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func testDBURL(t *testing.T) string {
	return "sqlite://" + filepath.Join(t.TempDir(), "cli.db")
}

// smokeIDs extracts the session and run printed by the smoke command.
func smokeIDs(t *testing.T, out string) (string, string) {
	t.Helper()
	var sid, rid string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "session_id: "); ok {
			sid = v
		}
		if v, ok := strings.CutPrefix(line, "run_id: "); ok {
			rid = v
		}
	}
	require.NotEmpty(t, sid, out)
	require.NotEmpty(t, rid, out)
	return sid, rid
}

func TestInitSchema(t *testing.T) {
	url := testDBURL(t)

	out, err := execute(t, "init-schema", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema applied (sqlite)")

	// Idempotent.
	_, err = execute(t, "init-schema", "--db-url", url)
	require.NoError(t, err)
}

func TestSmoke(t *testing.T) {
	out, err := execute(t, "smoke", "--db-url", testDBURL(t))
	require.NoError(t, err)

	assert.Contains(t, out, "latest: role_intake map[ok:true]")
	sid, rid := smokeIDs(t, out)
	assert.NoError(t, uuid.Validate(sid))
	assert.NoError(t, uuid.Validate(rid))
}

func TestSmoke_Concurrency(t *testing.T) {
	out, err := execute(t, "smoke", "--db-url", testDBURL(t), "--concurrency", "12", "--role", "Data Analyst")
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 13")
}

func TestSmoke_NegativeConcurrency(t *testing.T) {
	_, err := execute(t, "smoke", "--db-url", testDBURL(t), "--concurrency", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--concurrency")
}

func TestStateCommands(t *testing.T) {
	url := testDBURL(t)
	out, err := execute(t, "smoke", "--db-url", url)
	require.NoError(t, err)
	sid, rid := smokeIDs(t, out)

	out, err = execute(t, "state", "latest", "--db-url", url, "--session", sid, "--run", rid)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN STATE ENTRY")
	assert.Contains(t, out, "role_intake")

	out, err = execute(t, "state", "history", "--db-url", url, "--session", sid, "--run", rid)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN STATE HISTORY")
	assert.Contains(t, out, "1 entries")

	out, err = execute(t, "state", "progress", "--db-url", url, "--session", sid, "--run", rid)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN PROGRESS")
	assert.Contains(t, out, "evidence_ingestion")
}

func TestStateCommands_ForeignSessionDenied(t *testing.T) {
	url := testDBURL(t)
	out, err := execute(t, "smoke", "--db-url", url)
	require.NoError(t, err)
	_, rid := smokeIDs(t, out)

	_, err = execute(t, "state", "latest", "--db-url", url, "--session", uuid.NewString(), "--run", rid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotOwned))
}

func TestStateCommands_InvalidIDs(t *testing.T) {
	_, err := execute(t, "state", "history", "--db-url", testDBURL(t), "--session", "nope", "--run", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --session")
}

func TestUnsupportedDatabaseURL(t *testing.T) {
	_, err := execute(t, "init-schema", "--db-url", "mysql://localhost/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestMCP_UnknownDisabledTool(t *testing.T) {
	_, err := execute(t, "mcp", "--db-url", testDBURL(t), "--disable", "capsule_store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tools")
}

// documentID extracts the document printed by evidence register.
func documentID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "document_id: "); ok {
			return v
		}
	}
	t.Fatalf("no document_id in output: %s", out)
	return ""
}

func TestEvidenceCommands(t *testing.T) {
	url := testDBURL(t)
	out, err := execute(t, "smoke", "--db-url", url)
	require.NoError(t, err)
	sid, _ := smokeIDs(t, out)

	dir := t.TempDir()
	docPath := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("Built dashboards in SQL and Tableau."), 0o600))
	itemsPath := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(itemsPath, []byte(`[
		{"item_type": "skill", "label": "SQL", "snippet": "Built dashboards in SQL"},
		{"item_type": "skill", "label": "Tableau", "confidence": 0.6}
	]`), 0o600))

	t.Run("derived_only hides snippets", func(t *testing.T) {
		out, err := execute(t, "evidence", "register", "--db-url", url, "--session", sid,
			"--file", docPath, "--items", itemsPath)
		require.NoError(t, err)
		assert.Contains(t, out, "content_hash: sha256:")
		assert.Contains(t, out, "items: 2")
		did := documentID(t, out)

		out, err = execute(t, "evidence", "items", "--db-url", url, "--session", sid, "--document", did)
		require.NoError(t, err)
		assert.Contains(t, out, "derived_only")
		assert.Contains(t, out, "EVIDENCE ITEMS")
		assert.Contains(t, out, "SQL")
		assert.Contains(t, out, "(0.80)")
		assert.NotContains(t, out, "Built dashboards")
	})

	t.Run("excerpt_ok shows snippets", func(t *testing.T) {
		out, err := execute(t, "evidence", "register", "--db-url", url, "--session", sid,
			"--file", docPath, "--items", itemsPath, "--consent", "excerpt_ok")
		require.NoError(t, err)
		did := documentID(t, out)

		out, err = execute(t, "evidence", "items", "--db-url", url, "--session", sid, "--document", did)
		require.NoError(t, err)
		assert.Contains(t, out, "Built dashboards in SQL")
	})

	t.Run("no items", func(t *testing.T) {
		out, err := execute(t, "evidence", "register", "--db-url", url, "--session", sid, "--file", docPath)
		require.NoError(t, err)
		assert.NotContains(t, out, "items:")
		did := documentID(t, out)

		out, err = execute(t, "evidence", "items", "--db-url", url, "--session", sid, "--document", did)
		require.NoError(t, err)
		assert.Contains(t, out, "No items")
	})

	t.Run("foreign session", func(t *testing.T) {
		out, err := execute(t, "evidence", "register", "--db-url", url, "--session", sid, "--file", docPath)
		require.NoError(t, err)
		did := documentID(t, out)

		_, err = execute(t, "evidence", "items", "--db-url", url, "--session", uuid.NewString(), "--document", did)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrNotOwned))
	})
}

func TestEvidenceRegister_MissingFile(t *testing.T) {
	_, err := execute(t, "evidence", "register", "--db-url", testDBURL(t),
		"--session", uuid.NewString(), "--file", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open document")
}

func TestValidateState(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"step": "role_intake", "desired_role": "Data Analyst"}`, ""},
		{"unknown step", `{"step": "resume_rewrite"}`, "not a valid state payload"},
		{"bad status", `{"status": "paused"}`, "status"},
		{"not json", `{ nope`, "document is not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(strings.ReplaceAll(tt.name, " ", "_")+".json", tt.body)
			out, err := execute(t, "validate-state", path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, "valid")
		})
	}

	_, err := execute(t, "validate-state", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read state file")
}
