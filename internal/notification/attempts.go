package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fixturescout/scout/internal/reminder"
)

// AttemptStatusProcessing is the initial status of every attempt record; it
// is replaced by the send outcome once the attempt finishes.
const AttemptStatusProcessing = "processing"

// Attempt is the audit record for one delivery attempt. It is written once
// with status processing and updated once to the terminal outcome; nothing
// in the pipeline reads it back.
type Attempt struct {
	ID            string        `json:"attempt_id"`
	ReminderID    string        `json:"reminder_id"`
	UserID        string        `json:"user_id"`
	Mode          reminder.Mode `json:"reminder_mode"`
	ContactTarget string        `json:"contact_target"`
	Status        string        `json:"status"`
	ErrorDetail   string        `json:"error_detail,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
}

// AttemptRepository persists attempt records.
type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new attempt record.
func (r *AttemptRepository) Create(ctx context.Context, a *Attempt) error {
	query := `
		INSERT INTO notification_attempts (id, reminder_id, user_id, mode, contact_target, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ReminderID, a.UserID, a.Mode, a.ContactTarget, a.Status, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attempt %s: %w", a.ID, err)
	}
	return nil
}

// Finish updates an attempt to its terminal status.
func (r *AttemptRepository) Finish(ctx context.Context, id, status, errDetail string) error {
	query := `
		UPDATE notification_attempts
		SET status = $1, error_detail = NULLIF($2, ''), processed_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, errDetail, id)
	if err != nil {
		return fmt.Errorf("failed to finish attempt %s: %w", id, err)
	}
	return nil
}
