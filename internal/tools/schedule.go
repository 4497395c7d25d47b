package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/toolsurface"
	"github.com/robfig/cron/v3"
)

// JobCreator is the persistence seam ScheduleTool writes new jobs through.
type JobCreator interface {
	Create(ctx context.Context, job core.ScheduledJob) (core.ScheduledJob, error)
}

// ScheduleTool lets the model register a recurring or one-shot job against
// the Scheduled-Job Runner, generalizing the teacher's CronTool from a bare
// interval-seconds field to a five-field cron expression (or a one-shot
// marker), and from a chatID-only identity to the full (userID, channel)
// pair the job runner needs to deliver its output.
type ScheduleTool struct {
	Store JobCreator
}

func NewScheduleTool(store JobCreator) *ScheduleTool {
	return &ScheduleTool{Store: store}
}

func (s *ScheduleTool) Name() string {
	return "schedule_task"
}

func (s *ScheduleTool) Description() string {
	return "Schedule a recurring or one-time future task. Use 'cron' for a recurring five-field cron expression (e.g. '0 9 * * *' for daily at 9am), or 'run_at' (RFC3339 timestamp) for a one-time reminder."
}

func (s *ScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "What the assistant should do or say when the task fires.",
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "Five-field cron expression for a recurring task, e.g. '0 9 * * *'.",
			},
			"run_at": map[string]any{
				"type":        "string",
				"description": "RFC3339 timestamp for a one-time task, e.g. '2026-08-01T09:00:00-04:00'.",
			},
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone the cron expression should be evaluated in, e.g. 'America/New_York'.",
			},
		},
		"required": []string{"prompt"},
	}
}

func (s *ScheduleTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Prompt   string `json:"prompt"`
		Cron     string `json:"cron"`
		RunAt    string `json:"run_at"`
		Timezone string `json:"timezone"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Prompt == "" {
		return "Error: prompt is required.", nil
	}

	userID := toolsurface.UserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("missing user identity in context")
	}
	channel := toolsurface.ChannelFromContext(ctx)
	if channel == "" {
		channel = core.ChannelScheduler
	}

	job := core.ScheduledJob{
		PhoneNumber: userID,
		Channel:     channel,
		Prompt:      args.Prompt,
		Timezone:    args.Timezone,
	}

	switch {
	case args.RunAt != "":
		when, err := time.Parse(time.RFC3339, args.RunAt)
		if err != nil {
			return fmt.Sprintf("Error: run_at must be RFC3339, got %q", args.RunAt), nil
		}
		job.CronExpression = core.OnceCronPrefix + when.Format(time.RFC3339)
		job.NextRunAt = when.Unix()
	case args.Cron != "":
		loc := time.Local
		if args.Timezone != "" {
			if l, err := time.LoadLocation(args.Timezone); err == nil {
				loc = l
			}
		}
		sched, err := cron.ParseStandard(args.Cron)
		if err != nil {
			return fmt.Sprintf("Error: invalid cron expression %q: %v", args.Cron, err), nil
		}
		job.CronExpression = args.Cron
		job.NextRunAt = sched.Next(time.Now().In(loc)).Unix()
	default:
		return "Error: either cron or run_at is required.", nil
	}

	created, err := s.Store.Create(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to schedule task: %w", err)
	}
	return fmt.Sprintf("Scheduled task %s: %q", created.ID, created.Prompt), nil
}
