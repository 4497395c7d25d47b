package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adiaconou/hermes/internal/convwindow"
	"github.com/adiaconou/hermes/internal/core"
)

const maxFactChars = 2000

// proposePlanTool is the single structured tool call the planner forces,
// mirroring the teacher's MasterBrain.plan "propose_plan" function-call
// contract.
var proposePlanTool = struct {
	Name   string
	Schema map[string]any
}{
	Name: "propose_plan",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"goal": map[string]any{"type": "string"},
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         map[string]any{"type": "string"},
						"targetType": map[string]any{"type": "string", "enum": []string{"agent", "skill"}},
						"target":     map[string]any{"type": "string"},
						"task":       map[string]any{"type": "string"},
					},
					"required": []string{"id", "targetType", "target", "task"},
				},
			},
		},
		"required": []string{"goal", "steps"},
	},
}

// buildSystemPrompt assembles the planner's system prompt from the current
// request context, the agent/skill registries, and any media pre-analysis,
// per spec.md §4.5's documented prompt construction.
func buildSystemPrompt(pctx core.PlanContext, agents []core.AgentCapability, skills []core.LoadedSkill, mediaContext string, limits Limits) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current time (user timezone %s): %s\n\n", pctx.UserConfig.Timezone, pctx.Now.In(locationFor(pctx.UserConfig.Timezone)).Format("2006-01-02T15:04:05Z07:00"))

	if pctx.UserConfig.Name != "" {
		fmt.Fprintf(&b, "User: %s\n\n", pctx.UserConfig.Name)
	}

	b.WriteString("User facts:\n")
	b.WriteString(formatFacts(pctx.Facts))
	b.WriteString("\n\n")

	b.WriteString("Recent conversation:\n")
	b.WriteString(convwindow.Format(pctx.History))
	b.WriteString("\n\n")

	b.WriteString("Available agents:\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
		if len(a.Examples) > 0 {
			fmt.Fprintf(&b, "    Examples: %s\n", strings.Join(a.Examples, ", "))
		}
	}
	b.WriteString("\n")

	b.WriteString("Available skills:\n")
	for _, s := range skills {
		if !s.Enabled || (len(s.Channels) > 0 && !s.Channels[pctx.Channel]) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		if len(s.MatchHints) > 0 {
			fmt.Fprintf(&b, "    Match hints: %s\n", strings.Join(s.MatchHints, ", "))
		}
	}
	b.WriteString("\n")

	if mediaContext != "" {
		fmt.Fprintf(&b, "Media pre-analysis:\n%s\n\n", mediaContext)
	}

	fmt.Fprintf(&b, "Rules:\n- Produce at most %d steps.\n", limits.withDefaults().MaxTotalSteps)
	b.WriteString("- Prefer a skill over an agent when a skill clearly fits the request.\n")
	b.WriteString("- Use general-agent only as a fallback when nothing else fits.\n")
	b.WriteString("- Steps must be ordered; a later step may reference an earlier step's id in its task.\n")
	b.WriteString("- Respond by calling propose_plan exactly once with the full step list.\n")

	return b.String()
}

// formatFacts ranks facts by confidence descending and truncates to
// maxFactChars, per spec.md §4.5.
func formatFacts(facts []core.MemoryFact) string {
	if len(facts) == 0 {
		return "(none known)"
	}
	sorted := make([]core.MemoryFact, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	var b strings.Builder
	for _, f := range sorted {
		line := "- " + f.Fact + "\n"
		if b.Len()+len(line) > maxFactChars {
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
