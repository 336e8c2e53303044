package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository writes user-action logs to the user_logs table.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes a user-action entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_logs (user_id, action, label, period_id, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Action, entry.Label, nullableID(entry.PeriodID), entry.CreatedAt)
	return err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
