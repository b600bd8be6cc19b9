package dispatch

import (
	"time"

	"github.com/fixturescout/scout/internal/reminder"
)

// Queue topology. Dispatch queues are per delivery mode; the status queue
// carries delivery outcomes back to the reconciler. These names are part of
// the deployment contract and must stay stable across sender versions.
const (
	EmailQueue         = "reminders.dispatch.email"
	PhoneCallMockQueue = "reminders.dispatch.phone_call_mock"
	StatusQueue        = "reminders.status"
)

// QueueForMode maps a delivery mode to its dispatch queue. Modes without an
// entry fail dispatch with failed_unknown_mode.
var QueueForMode = map[reminder.Mode]string{
	reminder.ModeEmail:         EmailQueue,
	reminder.ModePhoneCallMock: PhoneCallMockQueue,
}

// Message is the payload handing a due reminder to a channel sender. It is
// a stable wire contract: senders and the scheduler version independently.
type Message struct {
	ReminderID    string        `json:"reminder_id"`
	UserID        string        `json:"user_id"`
	FixtureID     string        `json:"fixture_id"`
	ContactTarget string        `json:"contact_target"`
	Message       string        `json:"message"`
	Mode          reminder.Mode `json:"reminder_mode"`
	KickoffUTC    time.Time     `json:"kickoff_time_utc"`
}
