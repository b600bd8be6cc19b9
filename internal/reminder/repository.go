package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Repository handles database operations for reminders. Callers own the
// chunking: CreateBatch and DeletePendingByFixtures reject inputs above the
// store-side bounds instead of splitting them silently.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const reminderColumns = `
	id, user_id, fixture_id, reason, importance_score, mode, message,
	kickoff_utc, offset_minutes, trigger_at_utc, status,
	prompt_snippet, response_snippet,
	published_to_queue, last_outcome, last_outcome_at_utc, last_error_detail,
	created_at, updated_at, queued_at_utc
`

// CreateBatch inserts reminders inside one transaction. The batch must not
// exceed MaxWriteBatchOps.
func (r *Repository) CreateBatch(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if len(reminders) > MaxWriteBatchOps {
		return fmt.Errorf("batch of %d exceeds the %d-operation write limit", len(reminders), MaxWriteBatchOps)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reminders (
			id, user_id, fixture_id, reason, importance_score, mode, message,
			kickoff_utc, offset_minutes, trigger_at_utc, status,
			prompt_snippet, response_snippet, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	for _, rem := range reminders {
		_, err := tx.ExecContext(ctx, query,
			rem.ID, rem.UserID, rem.FixtureID, rem.Reason, rem.ImportanceScore,
			rem.Mode, rem.Message, rem.KickoffUTC, rem.OffsetMinutes, rem.TriggerAtUTC,
			rem.Status, rem.PromptSnippet, rem.ResponseSnippet, rem.CreatedAt, rem.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reminder %s: %w", rem.ID, err)
		}
	}
	return tx.Commit()
}

// DeletePendingByFixtures removes still-pending reminders for the user whose
// fixture id is in the given set. The set must not exceed MaxInFilterSize.
// Reminders already dispatched or resolved are left untouched.
func (r *Repository) DeletePendingByFixtures(ctx context.Context, userID string, fixtureIDs []string) (int64, error) {
	if len(fixtureIDs) == 0 {
		return 0, nil
	}
	if len(fixtureIDs) > MaxInFilterSize {
		return 0, fmt.Errorf("inclusion filter of %d ids exceeds the %d-id limit", len(fixtureIDs), MaxInFilterSize)
	}

	query := `
		DELETE FROM reminders
		WHERE user_id = $1 AND fixture_id = ANY($2) AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, userID, pq.Array(fixtureIDs), StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending reminders: %w", err)
	}
	return res.RowsAffected()
}

// ListDuePending returns pending reminders whose trigger time has passed,
// oldest trigger first, capped at limit.
func (r *Repository) ListDuePending(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status = $1 AND trigger_at_utc <= $2
		ORDER BY trigger_at_utc
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// ClaimPending transitions a reminder from pending to
// queued_for_notification, recording the target queue. Returns false if the
// reminder was not pending anymore, meaning a concurrent pass claimed it.
func (r *Repository) ClaimPending(ctx context.Context, id, queueName string, now time.Time) (bool, error) {
	query := `
		UPDATE reminders
		SET status = $1, published_to_queue = $2, queued_at_utc = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, StatusQueued, queueName, now, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkPendingFailed moves a pending reminder to a terminal failure state.
// Returns false if the reminder was no longer pending.
func (r *Repository) MarkPendingFailed(ctx context.Context, id string, to Status, errDetail string, now time.Time) (bool, error) {
	return r.transition(ctx, id, StatusPending, to, errDetail, now)
}

// ReleaseClaimFailed moves a claimed (queued) reminder to a terminal failure
// state, used when the publish after a successful claim fails.
func (r *Repository) ReleaseClaimFailed(ctx context.Context, id string, to Status, errDetail string, now time.Time) (bool, error) {
	return r.transition(ctx, id, StatusQueued, to, errDetail, now)
}

func (r *Repository) transition(ctx context.Context, id string, from, to Status, errDetail string, now time.Time) (bool, error) {
	query := `
		UPDATE reminders
		SET status = $1, last_error_detail = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, to, truncate(errDetail, 500), now, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition reminder %s to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResolveQueued folds a delivery outcome into a queued reminder. This is the
// only transition out of queued_for_notification. Returns false when the
// reminder is missing or already terminal.
func (r *Repository) ResolveQueued(ctx context.Context, id string, to Status, outcome string, outcomeAt time.Time, errDetail string) (bool, error) {
	query := `
		UPDATE reminders
		SET status = $1, last_outcome = $2, last_outcome_at_utc = $3,
		    last_error_detail = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, to, outcome, outcomeAt, truncate(errDetail, 500), id, StatusQueued)
	if err != nil {
		return false, fmt.Errorf("failed to resolve reminder %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetByID retrieves a reminder, or nil if it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rem, err := scanReminder(rows)
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

// DeleteFutureKickoffs removes reminders for fixtures that have not kicked
// off yet, deleting in bounded batches. Used by the admin purge command.
func (r *Repository) DeleteFutureKickoffs(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for {
		query := `
			DELETE FROM reminders
			WHERE id IN (
				SELECT id FROM reminders WHERE kickoff_utc > $1 LIMIT $2
			)
		`
		res, err := r.db.ExecContext(ctx, query, now, MaxWriteBatchOps)
		if err != nil {
			return total, fmt.Errorf("failed to delete future reminders: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
		if n < MaxWriteBatchOps {
			return total, nil
		}
	}
}

func scanReminder(rows *sql.Rows) (Reminder, error) {
	var rem Reminder
	var publishedTo, lastOutcome, lastErr, prompt, response sql.NullString
	var outcomeAt, queuedAt sql.NullTime
	err := rows.Scan(
		&rem.ID, &rem.UserID, &rem.FixtureID, &rem.Reason, &rem.ImportanceScore,
		&rem.Mode, &rem.Message, &rem.KickoffUTC, &rem.OffsetMinutes, &rem.TriggerAtUTC,
		&rem.Status, &prompt, &response, &publishedTo, &lastOutcome, &outcomeAt,
		&lastErr, &rem.CreatedAt, &rem.UpdatedAt, &queuedAt,
	)
	if err != nil {
		return Reminder{}, fmt.Errorf("failed to scan reminder: %w", err)
	}
	rem.PromptSnippet = prompt.String
	rem.ResponseSnippet = response.String
	rem.PublishedToQueue = publishedTo.String
	rem.LastOutcome = lastOutcome.String
	rem.LastErrorDetail = lastErr.String
	if outcomeAt.Valid {
		rem.LastOutcomeAtUTC = &outcomeAt.Time
	}
	if queuedAt.Valid {
		rem.QueuedAtUTC = &queuedAt.Time
	}
	return rem, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
