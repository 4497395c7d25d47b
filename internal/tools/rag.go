package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/toolsurface"
)

// FactStore is the persistence seam MemoryTool reads facts through.
type FactStore interface {
	Facts(ctx context.Context, userID string) ([]core.MemoryFact, error)
}

// MemoryTool lets the model recall durable facts stored about the acting
// user, generalizing the teacher's RAGTool from an unimplemented vector
// similarity stub into a concrete substring search over stored facts.
type MemoryTool struct {
	Store FactStore
}

func NewMemoryTool(store FactStore) *MemoryTool {
	return &MemoryTool{Store: store}
}

func (m *MemoryTool) Name() string {
	return "recall_memory"
}

func (m *MemoryTool) Description() string {
	return "Search previously remembered facts about the current user."
}

func (m *MemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language query to match against stored facts.",
			},
		},
		"required": []string{"query"},
	}
}

func (m *MemoryTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	userID := toolsurface.UserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("missing user identity in context")
	}

	facts, err := m.Store.Facts(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load facts: %w", err)
	}

	matches := matchFacts(facts, args.Query)
	if len(matches) == 0 {
		return "No remembered facts matched that query.", nil
	}

	var b strings.Builder
	for _, f := range matches {
		fmt.Fprintf(&b, "- %s\n", f.Fact)
	}
	return b.String(), nil
}

// matchFacts keeps facts whose text contains any query word, falling back
// to every fact when the query has no words or when no fact matches.
func matchFacts(facts []core.MemoryFact, query string) []core.MemoryFact {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return facts
	}

	var out []core.MemoryFact
	for _, f := range facts {
		lower := strings.ToLower(f.Fact)
		for _, w := range words {
			if strings.Contains(lower, w) {
				out = append(out, f)
				break
			}
		}
	}
	if len(out) == 0 {
		return facts
	}
	return out
}
