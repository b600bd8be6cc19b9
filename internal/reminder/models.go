package reminder

import (
	"errors"
	"strings"
	"time"
)

// Mode identifies the delivery channel for a reminder. The set is
// extensible; the scheduler routes by mode and rejects modes it has no
// queue for.
type Mode string

const (
	ModeEmail         Mode = "email"
	ModePhoneCallMock Mode = "phone_call_mock"
)

// Status is the lifecycle state of a reminder. A reminder starts pending,
// is claimed into queued_for_notification by the scheduler, and ends in
// exactly one terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusQueued  Status = "queued_for_notification"

	// Terminal success.
	StatusSent Status = "sent"

	// Terminal dispatch failures.
	StatusFailedUserNotFound    Status = "failed_user_not_found"
	StatusFailedInvalidUserData Status = "failed_invalid_user_data"
	StatusFailedUnknownMode     Status = "failed_unknown_mode"
	StatusFailedQueueing        Status = "failed_queueing"
	StatusFailedConfigError     Status = "failed_config_error"

	// Terminal malformed-record states.
	StatusErrorValidation Status = "error_validation"
	StatusErrorProcessing Status = "error_processing"

	// Terminal delivery failure, set by the reconciler.
	StatusFailedDelivery Status = "failed_notification_delivery"
)

// statusUpdatePrefix marks the catch-all states recorded for outcome
// strings the reconciler does not recognize.
const statusUpdatePrefix = "status_update_"

// StatusUpdateFallback records an unrecognized outcome verbatim instead of
// dropping it.
func StatusUpdateFallback(rawOutcome string) Status {
	return Status(statusUpdatePrefix + rawOutcome)
}

// Terminal reports whether the status is final. Terminal reminders are
// never transitioned again.
func (s Status) Terminal() bool {
	switch s {
	case StatusPending, StatusQueued:
		return false
	}
	return true
}

// IsStatusUpdateFallback reports whether the status was produced by the
// reconciler's catch-all path.
func (s Status) IsStatusUpdateFallback() bool {
	return strings.HasPrefix(string(s), statusUpdatePrefix)
}

// Store-side limits callers must chunk around. The inclusion-filter bound
// matches the backing store's maximum "in" cardinality; the batch bound
// matches its maximum operations per atomic write batch.
const (
	MaxInFilterSize  = 30
	MaxWriteBatchOps = 490
)

// Reminder is one scheduled notification for one user about one fixture.
// TriggerAtUTC is computed once at generation time and never changes; a
// kickoff change is handled by a later generation pass replacing the record.
type Reminder struct {
	ID        string `json:"reminder_id"`
	UserID    string `json:"user_id"`
	FixtureID string `json:"fixture_id"`

	Reason          string `json:"reason_for_selection"`
	ImportanceScore int    `json:"importance_score"`
	Mode            Mode   `json:"reminder_mode"`
	Message         string `json:"message"`

	KickoffUTC    time.Time `json:"kickoff_time_utc"`
	OffsetMinutes int       `json:"offset_minutes_before_kickoff"`
	TriggerAtUTC  time.Time `json:"trigger_at_utc"`

	Status Status `json:"status"`

	// Provenance snapshots, kept for audit and never re-parsed.
	PromptSnippet   string `json:"prompt_snippet,omitempty"`
	ResponseSnippet string `json:"response_snippet,omitempty"`

	// Dispatch and reconciliation side-fields.
	PublishedToQueue string     `json:"published_to_queue,omitempty"`
	LastOutcome      string     `json:"last_outcome,omitempty"`
	LastOutcomeAtUTC *time.Time `json:"last_outcome_at_utc,omitempty"`
	LastErrorDetail  string     `json:"last_error_detail,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	QueuedAtUTC *time.Time `json:"queued_at_utc,omitempty"`
}

// Validate checks the fields the dispatcher depends on. A stored record
// failing validation is moved to error_validation and skipped.
func (r *Reminder) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("missing reminder id")
	case r.UserID == "":
		return errors.New("missing user id")
	case r.FixtureID == "":
		return errors.New("missing fixture id")
	case r.Mode == "":
		return errors.New("missing reminder mode")
	case r.Message == "":
		return errors.New("missing message")
	case r.TriggerAtUTC.IsZero():
		return errors.New("missing trigger time")
	}
	return nil
}
