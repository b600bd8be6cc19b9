package notification

import (
	"time"

	"github.com/fixturescout/scout/internal/reminder"
)

// StatusEvent reports the terminal outcome of one delivery attempt back to
// the reconciler. It is a stable wire contract; it is never stored as-is.
type StatusEvent struct {
	ReminderID   string        `json:"reminder_id"`
	UserID       string        `json:"user_id"`
	Mode         reminder.Mode `json:"reminder_mode"`
	Outcome      string        `json:"outcome"`
	TimestampUTC time.Time     `json:"timestamp_utc"`
	ErrorDetail  string        `json:"error_detail,omitempty"`
}
