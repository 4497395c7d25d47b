// Package convwindow reduces a raw chronological message history to the
// window relevant for planning, generalizing the teacher's trimOrchContext
// helper from a single "keep last N" cap into an age/count/token triple cap.
package convwindow

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/adiaconou/hermes/internal/core"
)

// Limits bounds the Conversation Window filter. Zero values fall back to
// the documented defaults via WithDefaults.
type Limits struct {
	MaxAgeHours int
	MaxMessages int
	MaxTokens   int
}

// DefaultLimits matches spec.md §4.4's documented defaults.
var DefaultLimits = Limits{MaxAgeHours: 24, MaxMessages: 20, MaxTokens: 4000}

// WithDefaults returns l with any zero field replaced by DefaultLimits.
func (l Limits) WithDefaults() Limits {
	if l.MaxAgeHours == 0 {
		l.MaxAgeHours = DefaultLimits.MaxAgeHours
	}
	if l.MaxMessages == 0 {
		l.MaxMessages = DefaultLimits.MaxMessages
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = DefaultLimits.MaxTokens
	}
	return l
}

// estimatedTokens approximates token count from character count, per
// spec.md §4.4's ceil(chars / 3.3) rule.
func estimatedTokens(content string) int {
	return int(math.Ceil(float64(len(content)) / 3.3))
}

// Filter applies the three-stage cap — age, count, then token budget — and
// returns the kept messages in chronological order. messages is assumed
// newest-last on input, per spec.md §4.4; now anchors the age cap.
func Filter(messages []core.ConversationMessage, now time.Time, limits Limits) []core.ConversationMessage {
	limits = limits.WithDefaults()

	maxAge := time.Duration(limits.MaxAgeHours) * time.Hour
	recent := make([]core.ConversationMessage, 0, len(messages))
	for _, m := range messages {
		if now.Sub(m.CreatedAt) <= maxAge {
			recent = append(recent, m)
		}
	}

	if len(recent) > limits.MaxMessages {
		recent = recent[len(recent)-limits.MaxMessages:]
	}

	kept := make([]core.ConversationMessage, 0, len(recent))
	budget := limits.MaxTokens
	for i := len(recent) - 1; i >= 0; i-- {
		cost := estimatedTokens(recent[i].Content)
		if cost > budget {
			break
		}
		budget -= cost
		kept = append(kept, recent[i])
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CreatedAt.Before(kept[j].CreatedAt) })
	return kept
}

// roleTitles maps a ConversationMessage.Role to its display label in the
// formatted transcript.
var roleTitles = map[string]string{
	"user":      "User",
	"assistant": "Assistant",
	"system":    "System",
}

// Format renders a windowed message list as "{Role}: {content}" lines, or
// the literal fallback string when empty, per spec.md §4.4.
func Format(messages []core.ConversationMessage) string {
	if len(messages) == 0 {
		return "(No recent conversation history)"
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		title, ok := roleTitles[m.Role]
		if !ok {
			title = m.Role
		}
		lines = append(lines, title+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
