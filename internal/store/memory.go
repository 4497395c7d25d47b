package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/google/uuid"
)

// MemoryStore persists durable per-user facts the planner ranks and
// injects into its prompt.
type MemoryStore struct {
	DB *sql.DB
}

func NewMemoryStore(db *sql.DB) *MemoryStore {
	return &MemoryStore{DB: db}
}

// Facts returns every fact stored for userID.
func (s *MemoryStore) Facts(ctx context.Context, userID string) ([]core.MemoryFact, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, fact, confidence, created_at, updated_at FROM memory_facts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.MemoryFact
	for rows.Next() {
		var f core.MemoryFact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Fact, &f.Confidence, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AddFact inserts a new fact and returns it with its generated ID.
func (s *MemoryStore) AddFact(ctx context.Context, userID, fact string, confidence float64, now time.Time) (core.MemoryFact, error) {
	f := core.MemoryFact{ID: uuid.NewString(), UserID: userID, Fact: fact, Confidence: confidence, CreatedAt: now, UpdatedAt: now}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO memory_facts (id, user_id, fact, confidence, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.Fact, f.Confidence, f.CreatedAt, f.UpdatedAt)
	return f, err
}

// UpdateFact overwrites an existing fact's text/confidence.
func (s *MemoryStore) UpdateFact(ctx context.Context, f core.MemoryFact) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE memory_facts SET fact = ?, confidence = ?, updated_at = ? WHERE id = ?`,
		f.Fact, f.Confidence, f.UpdatedAt, f.ID)
	return err
}

// DeleteFact removes a fact by ID.
func (s *MemoryStore) DeleteFact(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM memory_facts WHERE id = ?`, id)
	return err
}
