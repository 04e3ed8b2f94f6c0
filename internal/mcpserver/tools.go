package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

var sessionIDArg = mcp.WithString("session_id",
	mcp.Required(),
	mcp.Description("Session that owns the run or document"),
)

var runIDArg = mcp.WithString("run_id",
	mcp.Required(),
	mcp.Description("Run to operate on"),
)

var sessionCreateToolDef = mcp.NewTool("session_create",
	mcp.WithDescription("Create an anonymous session. Returns the session with its id."),
	mcp.WithString("expires_at", mcp.Description("Optional RFC 3339 expiry")),
)

var runCreateToolDef = mcp.NewTool("run_create",
	mcp.WithDescription("Create a run for a desired role under a session."),
	sessionIDArg,
	mcp.WithString("desired_role", mcp.Required(), mcp.Description("Target role title, e.g. Data Analyst")),
	mcp.WithString("status",
		mcp.Description("Initial status (defaults to queued)"),
		mcp.Enum("queued", "running", "done", "failed"),
	),
)

var runSetStatusToolDef = mcp.NewTool("run_set_status",
	mcp.WithDescription("Record the asserted status of a run."),
	sessionIDArg,
	runIDArg,
	mcp.WithString("status",
		mcp.Required(),
		mcp.Enum("queued", "running", "done", "failed"),
	),
)

var runStateAppendToolDef = mcp.NewTool("run_state_append",
	mcp.WithDescription("Append an immutable state snapshot to a run's log. Returns the new entry id."),
	sessionIDArg,
	runIDArg,
	mcp.WithString("step", mcp.Required(), mcp.Description("Pipeline step that produced the state")),
	mcp.WithObject("state", mcp.Description("Agent state payload")),
	mcp.WithBoolean("contains_free_text", mcp.Description("Set when the payload holds user-entered text")),
)

var runStateLatestToolDef = mcp.NewTool("run_state_latest",
	mcp.WithDescription("Return the most recent state entry of a run, or null when none exist."),
	mcp.WithReadOnlyHintAnnotation(true),
	sessionIDArg,
	runIDArg,
)

var runStateHistoryToolDef = mcp.NewTool("run_state_history",
	mcp.WithDescription("Return every state entry of a run in creation order."),
	mcp.WithReadOnlyHintAnnotation(true),
	sessionIDArg,
	runIDArg,
)

var evidenceRegisterDocumentToolDef = mcp.NewTool("evidence_register_document",
	mcp.WithDescription("Register an evidence document. Supply content_hash, or content to have it hashed."),
	sessionIDArg,
	mcp.WithString("source_type",
		mcp.Required(),
		mcp.Enum("resume", "transcript", "portfolio", "job_posting", "other"),
	),
	mcp.WithString("content_hash", mcp.Description("sha256:<hex> of the document bytes")),
	mcp.WithString("content", mcp.Description("Document text to hash; not stored")),
	mcp.WithString("storage_ref", mcp.Description("Where the raw document lives")),
	mcp.WithString("consent_level",
		mcp.Description("Defaults to derived_only"),
		mcp.Enum("derived_only", "excerpt_ok", "raw_ok"),
	),
)

var evidenceRegisterItemsToolDef = mcp.NewTool("evidence_register_items",
	mcp.WithDescription("Register a batch of items extracted from a document. All or nothing."),
	sessionIDArg,
	mcp.WithString("document_id", mcp.Required()),
	mcp.WithArray("items",
		mcp.Required(),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_type":  map[string]any{"type": "string", "enum": []string{"skill", "experience", "project", "coursework", "claim"}},
				"label":      map[string]any{"type": "string"},
				"snippet":    map[string]any{"type": "string"},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"metadata":   map[string]any{"type": "object"},
			},
			"required": []string{"item_type", "label"},
		}),
	),
)

var evidenceItemsToolDef = mcp.NewTool("evidence_items",
	mcp.WithDescription("Return a document and its items, filtered by the document's consent level."),
	mcp.WithReadOnlyHintAnnotation(true),
	sessionIDArg,
	mcp.WithString("document_id", mcp.Required()),
)

var roleUpsertToolDef = mcp.NewTool("role_upsert",
	mcp.WithDescription("Create or refresh a cached role keyed by title, O*NET code and version."),
	mcp.WithString("role_title", mcp.Required()),
	mcp.WithString("onet_code"),
	mcp.WithString("version"),
	mcp.WithObject("summary"),
)

var roleReplaceRequirementsToolDef = mcp.NewTool("role_replace_requirements",
	mcp.WithDescription("Replace a role's requirement set atomically. An empty list clears it."),
	mcp.WithString("role_id", mcp.Required()),
	mcp.WithArray("requirements",
		mcp.Required(),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"req_type":   map[string]any{"type": "string", "enum": []string{"skill", "knowledge", "task", "tech"}},
				"label":      map[string]any{"type": "string"},
				"importance": map[string]any{"type": "number"},
				"metadata":   map[string]any{"type": "object"},
			},
			"required": []string{"req_type", "label"},
		}),
	),
)

var roleRequirementsToolDef = mcp.NewTool("role_requirements",
	mcp.WithDescription("Return a role and its requirements in supplied order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("role_id", mcp.Required()),
)
