package convwindow

import (
	"strings"
	"testing"
	"time"

	"github.com/adiaconou/hermes/internal/core"
)

func msg(role, content string, age time.Duration, now time.Time) core.ConversationMessage {
	return core.ConversationMessage{Role: role, Content: content, CreatedAt: now.Add(-age)}
}

func TestFilter_DropsMessagesOlderThanMaxAge(t *testing.T) {
	now := time.Now()
	in := []core.ConversationMessage{
		msg("user", "old one", 48*time.Hour, now),
		msg("user", "recent one", time.Hour, now),
	}
	out := Filter(in, now, DefaultLimits)
	if len(out) != 1 || out[0].Content != "recent one" {
		t.Fatalf("expected only the recent message, got %+v", out)
	}
}

func TestFilter_KeepsOnlyLastMaxMessages(t *testing.T) {
	now := time.Now()
	var in []core.ConversationMessage
	for i := 0; i < 25; i++ {
		in = append(in, msg("user", "m", time.Duration(25-i)*time.Minute, now))
	}
	out := Filter(in, now, Limits{MaxMessages: 5, MaxAgeHours: 24, MaxTokens: 4000})
	if len(out) != 5 {
		t.Fatalf("expected 5 messages kept, got %d", len(out))
	}
}

func TestFilter_TokenBudgetStopsAtBoundary(t *testing.T) {
	now := time.Now()
	big := strings.Repeat("x", 400) // ~122 estimated tokens
	in := []core.ConversationMessage{
		msg("user", big, 3*time.Minute, now),
		msg("user", big, 2*time.Minute, now),
		msg("user", big, time.Minute, now),
	}
	out := Filter(in, now, Limits{MaxAgeHours: 24, MaxMessages: 20, MaxTokens: 200})
	if len(out) != 1 {
		t.Fatalf("expected only the newest message to fit the budget, got %d", len(out))
	}
	if out[0].Content != big {
		t.Errorf("expected the newest message retained")
	}
}

func TestFilter_SingleOversizedMessageYieldsEmptyWindow(t *testing.T) {
	now := time.Now()
	huge := strings.Repeat("x", 20000)
	in := []core.ConversationMessage{msg("user", huge, time.Minute, now)}
	out := Filter(in, now, DefaultLimits)
	if len(out) != 0 {
		t.Fatalf("expected empty window for an oversized single message, got %d", len(out))
	}
}

func TestFilter_ReordersChronologically(t *testing.T) {
	now := time.Now()
	in := []core.ConversationMessage{
		msg("user", "first", 10*time.Minute, now),
		msg("assistant", "second", 5*time.Minute, now),
		msg("user", "third", time.Minute, now),
	}
	out := Filter(in, now, DefaultLimits)
	if len(out) != 3 {
		t.Fatalf("expected all 3 kept, got %d", len(out))
	}
	if out[0].Content != "first" || out[1].Content != "second" || out[2].Content != "third" {
		t.Fatalf("expected chronological order, got %+v", out)
	}
}

func TestFormat_EmptyWindowFallback(t *testing.T) {
	if got := Format(nil); got != "(No recent conversation history)" {
		t.Errorf("got %q", got)
	}
}

func TestFormat_JoinsRoleTitledLines(t *testing.T) {
	now := time.Now()
	in := []core.ConversationMessage{
		msg("user", "hi", time.Minute, now),
		msg("assistant", "hello", time.Second, now),
	}
	got := Format(in)
	want := "User: hi\nAssistant: hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
