// Package consent decides which parts of stored evidence a consumer may see.
// The store only carries consent levels; this package interprets them through
// a rego policy so deployments can tighten the rules without a rebuild.
package consent

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/open-policy-agent/opa/rego"
)

//go:embed policy.rego
var DefaultPolicy string

const query = "data.consent.decision"

// Decision is what the policy allows for one consent level.
// MaxSnippetChars of zero means snippets are not truncated.
type Decision struct {
	Snippets        bool `json:"snippets"`
	StorageRef      bool `json:"storage_ref"`
	MaxSnippetChars int  `json:"max_snippet_chars"`
}

// withhold is used whenever the policy yields nothing usable.
var withhold = Decision{}

// Engine evaluates the consent policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the given policy module.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("consent.rego", policyContent),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare consent policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

// NewDefaultEngine prepares the embedded policy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// LoadEngine prepares the policy at path, or the embedded one when path is empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewDefaultEngine(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consent policy: %w", err)
	}
	return NewEngine(ctx, string(data))
}

// Decide evaluates the policy for a consent level.
func (e *Engine) Decide(ctx context.Context, level types.ConsentLevel) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{
		"consent_level": string(level),
	}))
	if err != nil {
		return withhold, fmt.Errorf("failed to evaluate consent policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return withhold, nil
	}

	raw, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return withhold, fmt.Errorf("failed to read consent decision: %w", err)
	}
	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return withhold, fmt.Errorf("unexpected consent decision %s: %w", raw, err)
	}
	return d, nil
}

// Surface returns copies of the document and its items with everything the
// document's consent level does not allow removed.
func (e *Engine) Surface(ctx context.Context, doc types.EvidenceDocument, items []types.EvidenceItem) (types.EvidenceDocument, []types.EvidenceItem, error) {
	d, err := e.Decide(ctx, doc.ConsentLevel)
	if err != nil {
		return types.EvidenceDocument{}, nil, err
	}
	return d.ApplyDocument(doc), d.ApplyItems(items), nil
}

// ApplyDocument strips the storage reference unless it is allowed.
func (d Decision) ApplyDocument(doc types.EvidenceDocument) types.EvidenceDocument {
	if !d.StorageRef {
		doc.StorageRef = nil
	}
	return doc
}

// ApplyItems strips or truncates snippets. The input slice is not modified.
func (d Decision) ApplyItems(items []types.EvidenceItem) []types.EvidenceItem {
	out := make([]types.EvidenceItem, len(items))
	for i, item := range items {
		switch {
		case item.Snippet == nil:
		case !d.Snippets:
			item.Snippet = nil
		case d.MaxSnippetChars > 0:
			excerpt := truncate(*item.Snippet, d.MaxSnippetChars)
			item.Snippet = &excerpt
		}
		out[i] = item
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
