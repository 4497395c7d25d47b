package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/google/uuid"
)

// JobStore persists scheduled jobs and satisfies jobrunner.JobStore.
type JobStore struct {
	DB *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{DB: db}
}

// DueJobs returns enabled jobs with NextRunAt <= now, ascending, per
// spec.md §4.11 step 2.
func (s *JobStore) DueJobs(ctx context.Context, now time.Time) ([]core.ScheduledJob, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, phone_number, channel, user_request, prompt, cron_expression, timezone,
			next_run_at, last_run_at, enabled, created_at, updated_at
		 FROM jobs WHERE enabled = 1 AND next_run_at <= ? ORDER BY next_run_at ASC`, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// Advance persists a job's post-fire state.
func (s *JobStore) Advance(ctx context.Context, job core.ScheduledJob) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE jobs SET next_run_at = ?, last_run_at = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		job.NextRunAt, job.LastRunAt, boolToInt(job.Enabled), job.UpdatedAt, job.ID)
	return err
}

// Create inserts a new job, assigning it an ID.
func (s *JobStore) Create(ctx context.Context, job core.ScheduledJob) (core.ScheduledJob, error) {
	job.ID = uuid.NewString()
	now := time.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	job.Enabled = true
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO jobs (id, phone_number, channel, user_request, prompt, cron_expression, timezone,
			next_run_at, last_run_at, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.PhoneNumber, string(job.Channel), job.UserRequest, job.Prompt, job.CronExpression, job.Timezone,
		job.NextRunAt, job.LastRunAt, boolToInt(job.Enabled), job.CreatedAt, job.UpdatedAt)
	return job, err
}

// ListForUser returns every job owned by phoneNumber, regardless of Enabled.
func (s *JobStore) ListForUser(ctx context.Context, phoneNumber string) ([]core.ScheduledJob, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, phone_number, channel, user_request, prompt, cron_expression, timezone,
			next_run_at, last_run_at, enabled, created_at, updated_at
		 FROM jobs WHERE phone_number = ? ORDER BY created_at ASC`, phoneNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// Delete removes a job owned by phoneNumber by ID.
func (s *JobStore) Delete(ctx context.Context, phoneNumber, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM jobs WHERE phone_number = ? AND id = ?`, phoneNumber, id)
	return err
}

func scanJobs(rows *sql.Rows) ([]core.ScheduledJob, error) {
	var out []core.ScheduledJob
	for rows.Next() {
		var j core.ScheduledJob
		var channel string
		var enabled int
		if err := rows.Scan(&j.ID, &j.PhoneNumber, &channel, &j.UserRequest, &j.Prompt, &j.CronExpression, &j.Timezone,
			&j.NextRunAt, &j.LastRunAt, &enabled, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Channel = core.Channel(channel)
		j.Enabled = enabled != 0
		out = append(out, j)
	}
	return out, rows.Err()
}
