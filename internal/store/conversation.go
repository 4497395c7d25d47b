package store

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/adiaconou/hermes/internal/core"
)

// ConversationStore persists per-user message turns, generalizing the
// teacher's HistoryStore.AddMessage/GetHistory from a single chatID-keyed
// table to the channel-aware core.ConversationMessage shape.
type ConversationStore struct {
	DB *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{DB: db}
}

// AddMessage appends one turn.
func (s *ConversationStore) AddMessage(ctx context.Context, msg core.ConversationMessage) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO messages (user_id, channel, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.UserID, string(msg.Channel), msg.Role, msg.Content, msg.CreatedAt)
	return err
}

// History returns a user's last limit messages, oldest first.
func (s *ConversationStore) History(ctx context.Context, userID string, limit int) ([]core.ConversationMessage, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, channel, role, content, created_at FROM messages
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ConversationMessage
	for rows.Next() {
		var id int64
		var m core.ConversationMessage
		var channel string
		if err := rows.Scan(&id, &m.UserID, &channel, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ID = strconv.FormatInt(id, 10)
		m.Channel = core.Channel(channel)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
