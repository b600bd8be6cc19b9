package user

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles database reads for users, preferences, and feedback.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByID resolves a user's contact points. Returns ErrNotFound when the
// user does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, COALESCE(email, ''), COALESCE(phone, '') FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Phone)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// GetPreference returns the user's selection-criteria text. Returns
// ErrNotFound when no preference row exists.
func (r *Repository) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	query := `SELECT user_id, selection_prompt FROM user_preferences WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var p Preference
	err := row.Scan(&p.UserID, &p.SelectionPrompt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan preference: %w", err)
	}
	return &p, nil
}

// ListNegativeFeedback returns the most recent fixtures the user rejected,
// newest first, capped at limit.
func (r *Repository) ListNegativeFeedback(ctx context.Context, userID string, limit int) ([]FeedbackExample, error) {
	query := `
		SELECT user_id, fixture_id, home_team, away_team, league_name, COALESCE(reason, ''), created_at
		FROM user_feedback
		WHERE user_id = $1 AND interested = FALSE
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var examples []FeedbackExample
	for rows.Next() {
		var e FeedbackExample
		if err := rows.Scan(&e.UserID, &e.FixtureID, &e.HomeTeam, &e.AwayTeam, &e.LeagueName, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		examples = append(examples, e)
	}
	return examples, rows.Err()
}
