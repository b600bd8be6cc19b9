package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User carries the contact points the dispatcher resolves for a reminder.
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone_number,omitempty"`
}

// HasContact reports whether the user can be reached at all. A user with no
// contact points fails dispatch-time validation.
func (u User) HasContact() bool {
	return u.Email != "" || u.Phone != ""
}

// Preference holds the selection-criteria text fed into reminder generation.
type Preference struct {
	UserID          string `json:"user_id"`
	SelectionPrompt string `json:"selection_prompt"`
}

// FeedbackExample is one fixture the user previously rejected, kept as a
// snapshot so generation can be biased away from similar matches even after
// the fixture itself has rotated out of the window.
type FeedbackExample struct {
	UserID     string    `json:"user_id"`
	FixtureID  string    `json:"fixture_id"`
	HomeTeam   string    `json:"home_team_name"`
	AwayTeam   string    `json:"away_team_name"`
	LeagueName string    `json:"league_name"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
