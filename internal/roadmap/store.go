package roadmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// ErrNotFound is returned when a roadmap does not exist or belongs to
// another user.
var ErrNotFound = errors.New("roadmap not found")

// Roadmap is one generated study plan persisted for a signed-in user.
type Roadmap struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Title      string          `json:"title"`
	TargetCert string          `json:"targetCert"`
	Level      string          `json:"level"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RoadmapStore persists generated roadmaps in the shared SQLite store.
type RoadmapStore struct {
	db *sql.DB
}

// NewRoadmapStore wraps the shared database handle.
func NewRoadmapStore(db *sql.DB) *RoadmapStore {
	return &RoadmapStore{db: db}
}

// migrations returns the roadmap module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create roadmaps table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS roadmaps (
						id          TEXT PRIMARY KEY,
						user_id     TEXT NOT NULL,
						title       TEXT NOT NULL DEFAULT '',
						target_cert TEXT NOT NULL DEFAULT '',
						level       TEXT NOT NULL DEFAULT '',
						content     TEXT NOT NULL DEFAULT '{}',
						created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_roadmaps_user ON roadmaps(user_id, created_at)`,
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

// Save inserts a roadmap, assigning ID and CreatedAt when unset.
func (s *RoadmapStore) Save(ctx context.Context, r *Roadmap) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roadmaps (id, user_id, title, target_cert, level, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.TargetCert, r.Level, string(r.Content), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	return nil
}

// ListByUser returns the user's roadmaps, newest first.
func (s *RoadmapStore) ListByUser(ctx context.Context, userID string) ([]Roadmap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, target_cert, level, content, created_at
		 FROM roadmaps WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer rows.Close()

	var out []Roadmap
	for rows.Next() {
		var r Roadmap
		var content string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.TargetCert, &r.Level, &content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		r.Content = json.RawMessage(content)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one roadmap owned by the user, ErrNotFound otherwise.
func (s *RoadmapStore) Get(ctx context.Context, id, userID string) (*Roadmap, error) {
	var r Roadmap
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, target_cert, level, content, created_at
		 FROM roadmaps WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&r.ID, &r.UserID, &r.Title, &r.TargetCert, &r.Level, &content, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get roadmap: %w", err)
	}
	r.Content = json.RawMessage(content)
	return &r, nil
}
