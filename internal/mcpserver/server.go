// Package mcpserver exposes the state-custody operations as MCP tools over stdio.
package mcpserver

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/custody"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"session_create": {
		def:     sessionCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionCreate },
	},
	"run_create": {
		def:     runCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunCreate },
	},
	"run_set_status": {
		def:     runSetStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunSetStatus },
	},
	"run_state_append": {
		def:     runStateAppendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunStateAppend },
	},
	"run_state_latest": {
		def:     runStateLatestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunStateLatest },
	},
	"run_state_history": {
		def:     runStateHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunStateHistory },
	},
	"evidence_register_document": {
		def:     evidenceRegisterDocumentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvidenceRegisterDocument },
	},
	"evidence_register_items": {
		def:     evidenceRegisterItemsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvidenceRegisterItems },
	},
	"evidence_items": {
		def:     evidenceItemsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvidenceItems },
	},
	"role_upsert": {
		def:     roleUpsertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoleUpsert },
	},
	"role_replace_requirements": {
		def:     roleReplaceRequirementsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoleReplaceRequirements },
	},
	"role_requirements": {
		def:     roleRequirementsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoleRequirements },
	},
}

// AllToolNames returns the registered tool names in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names in the list that are not registered tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[strings.TrimSpace(name)]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the custody tools registered,
// skipping any listed in disabled.
func NewServer(svc *custody.Service, engine *consent.Engine, version string, disabled ...string) *server.MCPServer {
	s := server.NewMCPServer(
		"pathway-advisor",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc, engine)

	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[strings.TrimSpace(name)] = true
	}

	for name, entry := range toolRegistry {
		if skip[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools over stdio until the client disconnects.
func Run(svc *custody.Service, engine *consent.Engine, version string, disabled ...string) error {
	return server.ServeStdio(NewServer(svc, engine, version, disabled...))
}
