package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonathan/pathway-advisor/internal/apperr"
)

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// parseID parses a UUID argument.
func parseID(name, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperr.InvalidRequest("decode", name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("decode", name+" is not a valid id")
	}
	return id, nil
}
