package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc     *custody.Service
	consent *consent.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *custody.Service, engine *consent.Engine) *Handlers {
	return &Handlers{svc: svc, consent: engine}
}

// Request types for each tool

// SessionCreateRequest represents the arguments for session_create.
type SessionCreateRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RunCreateRequest represents the arguments for run_create.
type RunCreateRequest struct {
	SessionID   string          `json:"session_id"`
	DesiredRole string          `json:"desired_role"`
	Status      types.RunStatus `json:"status,omitempty"`
}

// RunSetStatusRequest represents the arguments for run_set_status.
type RunSetStatusRequest struct {
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id"`
	Status    types.RunStatus `json:"status"`
}

// RunStateAppendRequest represents the arguments for run_state_append.
type RunStateAppendRequest struct {
	SessionID        string         `json:"session_id"`
	RunID            string         `json:"run_id"`
	Step             string         `json:"step"`
	State            map[string]any `json:"state,omitempty"`
	ContainsFreeText bool           `json:"contains_free_text,omitempty"`
}

// RunRef identifies a run for the read tools.
type RunRef struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
}

// EvidenceRegisterDocumentRequest represents the arguments for evidence_register_document.
type EvidenceRegisterDocumentRequest struct {
	SessionID string `json:"session_id"`
	types.NewEvidenceDocument
	Content string `json:"content,omitempty"`
}

// EvidenceRegisterItemsRequest represents the arguments for evidence_register_items.
type EvidenceRegisterItemsRequest struct {
	SessionID  string                  `json:"session_id"`
	DocumentID string                  `json:"document_id"`
	Items      []types.NewEvidenceItem `json:"items"`
}

// DocumentRef identifies a document for evidence_items.
type DocumentRef struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
}

// RoleReplaceRequirementsRequest represents the arguments for role_replace_requirements.
type RoleReplaceRequirementsRequest struct {
	RoleID       string                     `json:"role_id"`
	Requirements []types.NewRoleRequirement `json:"requirements"`
}

// RoleRef identifies a role for role_requirements.
type RoleRef struct {
	RoleID string `json:"role_id"`
}

// Handler implementations

// HandleSessionCreate handles the session_create tool call.
func (h *Handlers) HandleSessionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionCreateRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("session_create", err.Error())), nil
	}

	sess, err := h.svc.CreateSession(ctx, input.ExpiresAt)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(sess)
}

// HandleRunCreate handles the run_create tool call.
func (h *Handlers) HandleRunCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunCreateRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("run_create", err.Error())), nil
	}
	sid, err := parseID("session_id", input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}

	run, err := h.svc.CreateRun(ctx, sid, input.DesiredRole, input.Status)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(run)
}

// HandleRunSetStatus handles the run_set_status tool call.
func (h *Handlers) HandleRunSetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunSetStatusRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("run_set_status", err.Error())), nil
	}
	sid, rid, err := parseRunRef(input.SessionID, input.RunID)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.svc.SetRunStatus(ctx, sid, rid, input.Status); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"run_id": rid, "status": input.Status})
}

// HandleRunStateAppend handles the run_state_append tool call.
func (h *Handlers) HandleRunStateAppend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunStateAppendRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("run_state_append", err.Error())), nil
	}
	sid, rid, err := parseRunRef(input.SessionID, input.RunID)
	if err != nil {
		return errorResult(err), nil
	}

	entryID, err := h.svc.Append(ctx, sid, rid, input.Step, input.State, input.ContainsFreeText)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": entryID})
}

// HandleRunStateLatest handles the run_state_latest tool call.
func (h *Handlers) HandleRunStateLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRef](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("run_state_latest", err.Error())), nil
	}
	sid, rid, err := parseRunRef(input.SessionID, input.RunID)
	if err != nil {
		return errorResult(err), nil
	}

	entry, err := h.svc.Latest(ctx, sid, rid)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entry": entry})
}

// HandleRunStateHistory handles the run_state_history tool call.
func (h *Handlers) HandleRunStateHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRef](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("run_state_history", err.Error())), nil
	}
	sid, rid, err := parseRunRef(input.SessionID, input.RunID)
	if err != nil {
		return errorResult(err), nil
	}

	entries, err := h.svc.History(ctx, sid, rid)
	if err != nil {
		return errorResult(err), nil
	}
	if entries == nil {
		entries = []types.RunStateEntry{}
	}
	return successResult(map[string]any{"entries": entries, "count": len(entries)})
}

// HandleEvidenceRegisterDocument handles the evidence_register_document tool call.
func (h *Handlers) HandleEvidenceRegisterDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EvidenceRegisterDocumentRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("evidence_register_document", err.Error())), nil
	}
	sid, err := parseID("session_id", input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}

	doc := input.NewEvidenceDocument
	if doc.ContentHash == "" && input.Content != "" {
		hash, err := custody.HashContent(strings.NewReader(input.Content))
		if err != nil {
			return errorResult(err), nil
		}
		doc.ContentHash = hash
	}

	docID, err := h.svc.RegisterDocument(ctx, sid, doc)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": docID, "content_hash": doc.ContentHash})
}

// HandleEvidenceRegisterItems handles the evidence_register_items tool call.
func (h *Handlers) HandleEvidenceRegisterItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EvidenceRegisterItemsRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("evidence_register_items", err.Error())), nil
	}
	sid, err := parseID("session_id", input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}
	docID, err := parseID("document_id", input.DocumentID)
	if err != nil {
		return errorResult(err), nil
	}

	ids, err := h.svc.RegisterItemsForSession(ctx, sid, docID, input.Items)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"ids": ids, "count": len(ids)})
}

// HandleEvidenceItems handles the evidence_items tool call.
func (h *Handlers) HandleEvidenceItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentRef](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("evidence_items", err.Error())), nil
	}
	sid, err := parseID("session_id", input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}
	docID, err := parseID("document_id", input.DocumentID)
	if err != nil {
		return errorResult(err), nil
	}

	doc, err := h.svc.Document(ctx, sid, docID)
	if err != nil {
		return errorResult(err), nil
	}
	items, err := h.svc.Items(ctx, sid, docID)
	if err != nil {
		return errorResult(err), nil
	}

	surfacedDoc, surfacedItems, err := h.consent.Surface(ctx, *doc, items)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"document": surfacedDoc, "items": surfacedItems})
}

// HandleRoleUpsert handles the role_upsert tool call.
func (h *Handlers) HandleRoleUpsert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[types.NewRole](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("role_upsert", err.Error())), nil
	}

	roleID, err := h.svc.UpsertRole(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": roleID})
}

// HandleRoleReplaceRequirements handles the role_replace_requirements tool call.
func (h *Handlers) HandleRoleReplaceRequirements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoleReplaceRequirementsRequest](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("role_replace_requirements", err.Error())), nil
	}
	roleID, err := parseID("role_id", input.RoleID)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Requirements == nil {
		return errorResult(apperr.InvalidRequest("role_replace_requirements", "requirements is required; send [] to clear")), nil
	}

	if err := h.svc.ReplaceRequirements(ctx, roleID, input.Requirements); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"role_id": roleID, "count": len(input.Requirements)})
}

// HandleRoleRequirements handles the role_requirements tool call.
func (h *Handlers) HandleRoleRequirements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoleRef](req)
	if err != nil {
		return errorResult(apperr.InvalidRequest("role_requirements", err.Error())), nil
	}
	roleID, err := parseID("role_id", input.RoleID)
	if err != nil {
		return errorResult(err), nil
	}

	role, err := h.svc.Role(ctx, roleID)
	if err != nil {
		return errorResult(err), nil
	}
	reqs, err := h.svc.Requirements(ctx, roleID)
	if err != nil {
		return errorResult(err), nil
	}
	if reqs == nil {
		reqs = []types.RoleRequirement{}
	}
	return successResult(map[string]any{"role": role, "requirements": reqs})
}

// parseRunRef parses the session and run arguments shared by the run tools.
func parseRunRef(sessionID, runID string) (uuid.UUID, uuid.UUID, error) {
	sid, err := parseID("session_id", sessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	rid, err := parseID("run_id", runID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return sid, rid, nil
}

// Result helpers

// errorResult creates an MCP error result from any error. IsError is set so
// clients treat it as a failure; internal details are never included.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := apperr.Public(err)
	errorObj["status"] = apperr.HTTPStatus(err)

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
