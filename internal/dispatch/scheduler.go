package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/internal/user"
)

// DefaultBatchLimit caps how many due reminders one scheduler pass handles.
const DefaultBatchLimit = 200

// ReminderStore is the reminder persistence surface the scheduler needs.
// Claim and transition methods are conditional updates: they return false
// when the record already left the expected status.
type ReminderStore interface {
	ListDuePending(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error)
	ClaimPending(ctx context.Context, id, queueName string, now time.Time) (bool, error)
	MarkPendingFailed(ctx context.Context, id string, to reminder.Status, errDetail string, now time.Time) (bool, error)
	ReleaseClaimFailed(ctx context.Context, id string, to reminder.Status, errDetail string, now time.Time) (bool, error)
}

// UserStore resolves contact info for reminder owners.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Publisher pushes dispatch messages onto the message channel.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// SummaryPublisher receives run summaries for the audit stream. Optional.
type SummaryPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Summary describes one scheduler pass, for operational visibility only.
type Summary struct {
	TotalQueried   int `json:"total_queried"`
	Queued         int `json:"queued"`
	Failed         int `json:"failed"`
	SkippedInvalid int `json:"skipped_invalid"`
	AlreadyClaimed int `json:"already_claimed"`
	Deferred       int `json:"deferred"`
}

// Scheduler polls for due pending reminders and hands them to channel
// senders through per-mode queues. Each reminder is claimed with a
// conditional update before publishing, so two overlapping passes cannot
// both dispatch the same record.
type Scheduler struct {
	reminders ReminderStore
	users     UserStore
	publisher Publisher
	summaries SummaryPublisher
	log       *slog.Logger

	limit int
	now   func() time.Time
}

func NewScheduler(reminders ReminderStore, users UserStore, publisher Publisher, summaries SummaryPublisher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		users:     users,
		publisher: publisher,
		summaries: summaries,
		log:       log,
		limit:     DefaultBatchLimit,
		now:       time.Now,
	}
}

// SetBatchLimit overrides the per-pass cap. Non-positive values are ignored.
func (s *Scheduler) SetBatchLimit(limit int) {
	if limit > 0 {
		s.limit = limit
	}
}

// Run executes one dispatch pass. A failure on one reminder never aborts
// the batch; only the initial query can fail the pass as a whole.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	now := s.now().UTC()

	due, err := s.reminders.ListDuePending(ctx, now, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	summary := &Summary{TotalQueried: len(due)}
	for _, rem := range due {
		s.processOne(ctx, rem, summary)
	}

	s.log.Info("dispatch pass complete",
		"total_queried", summary.TotalQueried,
		"queued", summary.Queued,
		"failed", summary.Failed,
		"skipped_invalid", summary.SkippedInvalid,
		"already_claimed", summary.AlreadyClaimed,
		"deferred", summary.Deferred,
	)
	s.publishSummary(ctx, summary)
	return summary, nil
}

func (s *Scheduler) processOne(ctx context.Context, rem reminder.Reminder, summary *Summary) {
	// A panic on one record is contained like any other per-record error:
	// the record gets a terminal status and the batch continues.
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("unexpected failure processing reminder", "reminder_id", rem.ID, "panic", rec)
			s.markFailed(ctx, rem.ID, reminder.StatusErrorProcessing, fmt.Sprintf("%v", rec), s.now().UTC())
			summary.Failed++
			schedulerProcessed.WithLabelValues("error_processing").Inc()
		}
	}()

	now := s.now().UTC()

	if err := rem.Validate(); err != nil {
		s.log.Error("invalid reminder record", "reminder_id", rem.ID, "error", err)
		s.markFailed(ctx, rem.ID, reminder.StatusErrorValidation, err.Error(), now)
		summary.SkippedInvalid++
		schedulerProcessed.WithLabelValues("error_validation").Inc()
		return
	}

	queueName, ok := QueueForMode[rem.Mode]
	if !ok {
		s.log.Error("unknown reminder mode", "reminder_id", rem.ID, "mode", rem.Mode)
		s.markFailed(ctx, rem.ID, reminder.StatusFailedUnknownMode, string(rem.Mode), now)
		summary.Failed++
		schedulerProcessed.WithLabelValues("failed_unknown_mode").Inc()
		return
	}

	owner, err := s.users.GetByID(ctx, rem.UserID)
	if errors.Is(err, user.ErrNotFound) {
		s.log.Error("reminder owner not found", "reminder_id", rem.ID, "user_id", rem.UserID)
		s.markFailed(ctx, rem.ID, reminder.StatusFailedUserNotFound, "", now)
		summary.Failed++
		schedulerProcessed.WithLabelValues("failed_user_not_found").Inc()
		return
	}
	if err != nil {
		// Transient store error: leave the record pending for the next pass.
		s.log.Warn("failed to resolve user, deferring reminder", "reminder_id", rem.ID, "error", err)
		summary.Deferred++
		schedulerProcessed.WithLabelValues("deferred").Inc()
		return
	}

	target := contactTarget(owner, rem.Mode)
	if target == "" {
		s.log.Error("no usable contact for mode",
			"reminder_id", rem.ID, "user_id", rem.UserID, "mode", rem.Mode)
		s.markFailed(ctx, rem.ID, reminder.StatusFailedInvalidUserData,
			fmt.Sprintf("no contact target for mode %s", rem.Mode), now)
		summary.Failed++
		schedulerProcessed.WithLabelValues("failed_invalid_user_data").Inc()
		return
	}

	claimed, err := s.reminders.ClaimPending(ctx, rem.ID, queueName, now)
	if err != nil {
		s.log.Warn("failed to claim reminder, deferring", "reminder_id", rem.ID, "error", err)
		summary.Deferred++
		schedulerProcessed.WithLabelValues("deferred").Inc()
		return
	}
	if !claimed {
		// A concurrent pass got there first; the record is its problem now.
		s.log.Info("reminder already claimed", "reminder_id", rem.ID)
		summary.AlreadyClaimed++
		schedulerProcessed.WithLabelValues("already_claimed").Inc()
		return
	}

	msg := Message{
		ReminderID:    rem.ID,
		UserID:        rem.UserID,
		FixtureID:     rem.FixtureID,
		ContactTarget: target,
		Message:       rem.Message,
		Mode:          rem.Mode,
		KickoffUTC:    rem.KickoffUTC,
	}
	body, err := json.Marshal(msg)
	if err == nil {
		err = s.publisher.Publish(ctx, queueName, body)
	}
	if err != nil {
		s.log.Error("failed to publish dispatch message",
			"reminder_id", rem.ID, "queue", queueName, "error", err)
		if _, rerr := s.reminders.ReleaseClaimFailed(ctx, rem.ID, reminder.StatusFailedQueueing, err.Error(), s.now().UTC()); rerr != nil {
			s.log.Error("failed to record queueing failure", "reminder_id", rem.ID, "error", rerr)
		}
		summary.Failed++
		schedulerProcessed.WithLabelValues("failed_queueing").Inc()
		return
	}

	s.log.Info("reminder queued for notification",
		"reminder_id", rem.ID, "user_id", rem.UserID, "queue", queueName)
	summary.Queued++
	schedulerProcessed.WithLabelValues("queued").Inc()
}

func (s *Scheduler) markFailed(ctx context.Context, id string, to reminder.Status, detail string, now time.Time) {
	if _, err := s.reminders.MarkPendingFailed(ctx, id, to, detail, now); err != nil {
		s.log.Error("failed to record terminal status", "reminder_id", id, "status", to, "error", err)
	}
}

func (s *Scheduler) publishSummary(ctx context.Context, summary *Summary) {
	if s.summaries == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.summaries.Publish(ctx, "scheduler", payload); err != nil {
		s.log.Warn("failed to publish run summary", "error", err)
	}
}

func contactTarget(u *user.User, mode reminder.Mode) string {
	switch mode {
	case reminder.ModeEmail:
		return u.Email
	case reminder.ModePhoneCallMock:
		return u.Phone
	}
	return ""
}
