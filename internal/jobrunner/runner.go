// Package jobrunner implements the Scheduled-Job Runner: a poller that
// fires saved jobs through the Tool-Execution Surface on their own cron
// schedule, generalizing the teacher's tools.CronTool + agent.Scheduler
// pair from a single interval-seconds field to full five-field cron
// expressions (plus a one-shot marker) evaluated per job timezone.
package jobrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/observability"
	"github.com/adiaconou/hermes/internal/poller"
	"github.com/adiaconou/hermes/internal/toolsurface"
	"github.com/robfig/cron/v3"
)

// JobStore is the persistence seam the runner reads and writes through.
type JobStore interface {
	// DueJobs returns enabled jobs with NextRunAt <= now, ordered by
	// NextRunAt ascending, per spec.md §4.11 step 2.
	DueJobs(ctx context.Context, now time.Time) ([]core.ScheduledJob, error)
	// Advance persists a job's post-fire state (NextRunAt, LastRunAt,
	// Enabled) back to storage.
	Advance(ctx context.Context, job core.ScheduledJob) error
}

// Sender delivers a job's textual output to its user over the configured channel.
type Sender interface {
	Send(ctx context.Context, ch core.Channel, userID, text string) error
}

// Runner ties a JobStore, the Tool-Execution Surface, and a Sender together
// behind a single Poller instance.
type Runner struct {
	Store         JobStore
	Surface       *toolsurface.Surface
	ReadOnlyTools []string
	Sender        Sender
	Logger        core.Logger

	poller *poller.Poller
}

// New returns a Runner that ticks every interval (DefaultInterval if zero).
func New(store JobStore, surface *toolsurface.Surface, readOnlyTools []string, sender Sender, logger core.Logger, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	r := &Runner{Store: store, Surface: surface, ReadOnlyTools: readOnlyTools, Sender: sender, Logger: logger}
	r.poller = poller.New(r.tick, interval, logger)
	return r
}

// Start begins polling for due jobs.
func (r *Runner) Start(ctx context.Context) { r.poller.Start(ctx) }

// Stop halts polling and awaits any in-flight tick.
func (r *Runner) Stop() { r.poller.Stop() }

// IsRunning reports whether the runner's poller loop is active.
func (r *Runner) IsRunning() bool { return r.poller.IsRunning() }

func (r *Runner) tick(ctx context.Context) {
	now := time.Now()
	jobs, err := r.Store.DueJobs(ctx, now)
	if err != nil {
		r.Logger.Errorf("jobrunner: listing due jobs: %v", err)
		return
	}
	for _, job := range jobs {
		r.runOne(ctx, job, now)
	}
}

// runOne executes and advances a single job. A failure here is logged and
// never propagated, per spec.md §4.11 step 4.
func (r *Runner) runOne(ctx context.Context, job core.ScheduledJob, now time.Time) {
	observability.SetStatus(observability.RoleSlave, fmt.Sprintf("Job %s: %s", job.ID, job.Prompt))
	defer observability.SetStatus(observability.RoleIdle, "")

	ectx := core.ExecutionContext{UserID: job.PhoneNumber, Channel: job.Channel, Logger: r.Logger}
	result := r.Surface.Execute(ctx, systemPromptTemplate, buildTask(job), r.ReadOnlyTools, ectx)

	if result.Success {
		if text, ok := result.Output.(string); ok && text != "" {
			if err := r.Sender.Send(ctx, job.Channel, job.PhoneNumber, text); err != nil {
				r.Logger.Errorf("jobrunner: sending output for job %s: %v", job.ID, err)
			}
		}
	} else {
		r.Logger.Errorf("jobrunner: job %s failed: %s", job.ID, result.Error)
	}

	advanced, err := advance(job, now)
	if err != nil {
		r.Logger.Errorf("jobrunner: computing next run for job %s: %v", job.ID, err)
		return
	}
	if err := r.Store.Advance(ctx, advanced); err != nil {
		r.Logger.Errorf("jobrunner: persisting advanced job %s: %v", job.ID, err)
	}
}

// advance computes a job's post-fire state: a one-shot marker disables the
// job, everything else is re-scheduled from its cron expression evaluated
// in its own timezone, per spec.md §4.11 step 3.d.
func advance(job core.ScheduledJob, now time.Time) (core.ScheduledJob, error) {
	job.LastRunAt = now.Unix()

	if isOnce(job.CronExpression) {
		job.Enabled = false
		job.UpdatedAt = now
		return job, nil
	}

	loc := locationFor(job.Timezone)
	sched, err := cron.ParseStandard(job.CronExpression)
	if err != nil {
		return job, fmt.Errorf("invalid cron expression %q: %w", job.CronExpression, err)
	}
	job.NextRunAt = sched.Next(now.In(loc)).Unix()
	job.UpdatedAt = now
	return job, nil
}

func isOnce(cronExpr string) bool {
	return len(cronExpr) >= len(core.OnceCronPrefix) && cronExpr[:len(core.OnceCronPrefix)] == core.OnceCronPrefix
}

func locationFor(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC // unknown zone: fall back rather than fail the whole job
	}
	return loc
}
