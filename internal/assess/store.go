package assess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Result is one persisted assessment outcome.
type Result struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Mode       string          `json:"mode"`
	Score      float64         `json:"score"`
	Level      string          `json:"level"`
	Strengths  []string        `json:"strengths"`
	Weaknesses []string        `json:"weaknesses"`
	Questions  json.RawMessage `json:"questions,omitempty"`
	Answers    json.RawMessage `json:"answers,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AssessStore persists assessment results in the shared SQLite store.
type AssessStore struct {
	db *sql.DB
}

// NewAssessStore wraps the shared database handle.
func NewAssessStore(db *sql.DB) *AssessStore {
	return &AssessStore{db: db}
}

// migrations returns the assess module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create assessments table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS assessments (
						id         TEXT PRIMARY KEY,
						user_id    TEXT NOT NULL,
						mode       TEXT NOT NULL DEFAULT 'beginner',
						score      REAL NOT NULL DEFAULT 0,
						level      TEXT NOT NULL DEFAULT '',
						strengths  TEXT NOT NULL DEFAULT '[]',
						weaknesses TEXT NOT NULL DEFAULT '[]',
						questions  TEXT NOT NULL DEFAULT '[]',
						answers    TEXT NOT NULL DEFAULT '{}',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, created_at)`,
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

// Save inserts a result, assigning ID and CreatedAt when unset.
func (s *AssessStore) Save(ctx context.Context, r *Result) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	strengths, err := json.Marshal(r.Strengths)
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	weaknesses, err := json.Marshal(r.Weaknesses)
	if err != nil {
		return fmt.Errorf("marshal weaknesses: %w", err)
	}
	questions := r.Questions
	if questions == nil {
		questions = json.RawMessage("[]")
	}
	answers := r.Answers
	if answers == nil {
		answers = json.RawMessage("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, user_id, mode, score, level, strengths, weaknesses, questions, answers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Mode, r.Score, r.Level,
		string(strengths), string(weaknesses), string(questions), string(answers), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

// History returns the user's results, newest first, without the full
// question and answer payloads.
func (s *AssessStore) History(ctx context.Context, userID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, mode, score, level, strengths, weaknesses, created_at
		 FROM assessments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var strengths, weaknesses string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Mode, &r.Score, &r.Level, &strengths, &weaknesses, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if err := json.Unmarshal([]byte(strengths), &r.Strengths); err != nil {
			r.Strengths = nil
		}
		if err := json.Unmarshal([]byte(weaknesses), &r.Weaknesses); err != nil {
			r.Weaknesses = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
