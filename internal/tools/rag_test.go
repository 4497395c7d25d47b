package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/toolsurface"
)

type fakeFactStore struct {
	byUser map[string][]core.MemoryFact
}

func (f *fakeFactStore) Facts(ctx context.Context, userID string) ([]core.MemoryFact, error) {
	return f.byUser[userID], nil
}

func ctxWithUser(userID string) context.Context {
	return toolsurface.ContextWithIdentity(context.Background(), userID, core.ChannelSMS)
}

func TestMemoryTool_MatchesRelevantFacts(t *testing.T) {
	store := &fakeFactStore{byUser: map[string][]core.MemoryFact{
		"u1": {
			{Fact: "likes coffee in the morning"},
			{Fact: "has a dentist appointment on Friday"},
		},
	}}
	tool := NewMemoryTool(store)

	out, err := tool.Execute(ctxWithUser("u1"), `{"query":"coffee"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "coffee") {
		t.Fatalf("expected the coffee fact in output, got %q", out)
	}
	if strings.Contains(out, "dentist") {
		t.Fatalf("expected the dentist fact to be filtered out, got %q", out)
	}
}

func TestMemoryTool_NoUserIdentityErrors(t *testing.T) {
	tool := NewMemoryTool(&fakeFactStore{})
	_, err := tool.Execute(context.Background(), `{"query":"anything"}`)
	if err == nil {
		t.Fatal("expected an error when no user identity is present in context")
	}
}

func TestMemoryTool_NoFactsAtAll(t *testing.T) {
	tool := NewMemoryTool(&fakeFactStore{byUser: map[string][]core.MemoryFact{}})
	out, err := tool.Execute(ctxWithUser("u2"), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "No remembered facts matched that query." {
		t.Fatalf("unexpected output: %q", out)
	}
}
