package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// StoredMessage is one persisted transcript entry. The JSON shape
// matches the UI's {role, text} turns so history round-trips straight
// back into a message request.
type StoredMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"` // user or mentor
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatStore persists per-user conversation transcripts.
type ChatStore struct {
	db *sql.DB
}

// NewChatStore wraps the shared database handle.
func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

// migrations returns the chat module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create chat_messages table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS chat_messages (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						user_id    TEXT NOT NULL,
						role       TEXT NOT NULL,
						content    TEXT NOT NULL,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, id)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// SaveTurn appends one transcript entry.
func (s *ChatStore) SaveTurn(ctx context.Context, userID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (user_id, role, content) VALUES (?, ?, ?)`,
		userID, role, content)
	if err != nil {
		return fmt.Errorf("save chat turn: %w", err)
	}
	return nil
}

// History returns the user's transcript in conversation order, capped
// at limit entries from the end.
func (s *ChatStore) History(ctx context.Context, userID string, limit int) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM (
			SELECT id, role, content, created_at FROM chat_messages
			WHERE user_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Clear deletes the user's transcript.
func (s *ChatStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}
