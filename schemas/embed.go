// Package schemas embeds the JSON Schemas for run state payloads.
package schemas

import "embed"

// AgentState is the file name of the run state snapshot schema.
const AgentState = "agent_state.schema.json"

//go:embed *.schema.json
var Files embed.FS
