package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/adiaconou/hermes/internal/core"
)

type fakeJobCreator struct {
	created []core.ScheduledJob
}

func (f *fakeJobCreator) Create(ctx context.Context, job core.ScheduledJob) (core.ScheduledJob, error) {
	job.ID = "job-1"
	f.created = append(f.created, job)
	return job, nil
}

func TestScheduleTool_OneShotSetsOnceMarker(t *testing.T) {
	store := &fakeJobCreator{}
	tool := NewScheduleTool(store)

	out, err := tool.Execute(ctxWithUser("u1"), `{"prompt":"remind me","run_at":"2026-08-01T09:00:00Z"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "job-1") {
		t.Fatalf("expected the created job ID in output, got %q", out)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one job created, got %d", len(store.created))
	}
	got := store.created[0]
	if !strings.HasPrefix(got.CronExpression, core.OnceCronPrefix) {
		t.Fatalf("expected a one-shot marker, got %q", got.CronExpression)
	}
	if got.PhoneNumber != "u1" {
		t.Fatalf("expected the job to be owned by the acting user, got %q", got.PhoneNumber)
	}
}

func TestScheduleTool_RecurringComputesNextRunFromCron(t *testing.T) {
	store := &fakeJobCreator{}
	tool := NewScheduleTool(store)

	_, err := tool.Execute(ctxWithUser("u1"), `{"prompt":"daily digest","cron":"0 9 * * *","timezone":"UTC"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := store.created[0]
	if got.CronExpression != "0 9 * * *" {
		t.Fatalf("expected the cron expression stored verbatim, got %q", got.CronExpression)
	}
	if got.NextRunAt == 0 {
		t.Fatal("expected NextRunAt to be computed from the cron expression")
	}
}

func TestScheduleTool_MissingCronAndRunAtErrors(t *testing.T) {
	store := &fakeJobCreator{}
	tool := NewScheduleTool(store)

	out, err := tool.Execute(ctxWithUser("u1"), `{"prompt":"whatever"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Error") {
		t.Fatalf("expected an error message in output, got %q", out)
	}
	if len(store.created) != 0 {
		t.Fatal("expected no job to be created")
	}
}

func TestScheduleTool_NoUserIdentityErrors(t *testing.T) {
	store := &fakeJobCreator{}
	tool := NewScheduleTool(store)

	_, err := tool.Execute(context.Background(), `{"prompt":"x","cron":"* * * * *"}`)
	if err == nil {
		t.Fatal("expected an error when no user identity is present in context")
	}
}
