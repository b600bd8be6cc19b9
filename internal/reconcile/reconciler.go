// Package reconcile folds asynchronous delivery outcomes back into
// reminder records. It is the only writer that transitions a reminder out
// of queued_for_notification.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fixturescout/scout/internal/notification"
	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/pkg/messaging"
)

// ReminderStore is the conditional-update surface the reconciler needs.
// ResolveQueued returns false when the reminder is missing or already
// terminal.
type ReminderStore interface {
	ResolveQueued(ctx context.Context, id string, to reminder.Status, outcome string, outcomeAt time.Time, errDetail string) (bool, error)
}

// Classify maps a raw outcome string to the reminder's final status.
// Unrecognized outcomes are recorded verbatim under a status_update_ prefix
// rather than dropped, so new sender vocabulary is never lost.
func Classify(rawOutcome string) reminder.Status {
	lower := strings.ToLower(rawOutcome)
	switch {
	case strings.Contains(lower, "sent"), strings.Contains(lower, "delivered"):
		return reminder.StatusSent
	case strings.Contains(lower, "failed"):
		return reminder.StatusFailedDelivery
	default:
		return reminder.StatusUpdateFallback(rawOutcome)
	}
}

// Reconciler consumes status events and applies them to reminder records.
type Reconciler struct {
	reminders ReminderStore
	log       *slog.Logger
}

func NewReconciler(reminders ReminderStore, log *slog.Logger) *Reconciler {
	return &Reconciler{reminders: reminders, log: log}
}

// Apply folds one status event into its reminder. A missing or already
// terminal target is tolerated and logged; the event carries no
// compensating action. Only store errors are returned, so the consumer can
// redeliver them.
func (r *Reconciler) Apply(ctx context.Context, event notification.StatusEvent) error {
	if event.ReminderID == "" {
		return fmt.Errorf("status event carries no reminder id")
	}

	status := Classify(event.Outcome)
	outcomeAt := event.TimestampUTC
	if outcomeAt.IsZero() {
		outcomeAt = time.Now().UTC()
	}

	updated, err := r.reminders.ResolveQueued(ctx, event.ReminderID, status, event.Outcome, outcomeAt, event.ErrorDetail)
	if err != nil {
		reconcilerUpdates.WithLabelValues("store_error").Inc()
		return fmt.Errorf("failed to resolve reminder %s: %w", event.ReminderID, err)
	}
	if !updated {
		r.log.Warn("status event target missing or already terminal, dropping",
			"reminder_id", event.ReminderID, "outcome", event.Outcome)
		reconcilerUpdates.WithLabelValues("target_missing").Inc()
		return nil
	}

	r.log.Info("reminder resolved",
		"reminder_id", event.ReminderID, "status", status, "outcome", event.Outcome)
	reconcilerUpdates.WithLabelValues(string(status)).Inc()
	return nil
}

// HandleDelivery is the channel-consumer entry point. Undecodable events
// and events without a reminder id are acked and dropped, since redelivery
// cannot repair the payload; only store errors are nacked for redelivery.
func (r *Reconciler) HandleDelivery(ctx context.Context, d messaging.Delivery) {
	var event notification.StatusEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		r.log.Error("undecodable status event, dropping", "error", err)
		reconcilerUpdates.WithLabelValues("dropped_invalid").Inc()
		d.Ack()
		return
	}
	if event.ReminderID == "" {
		r.log.Error("status event carries no reminder id, dropping", "outcome", event.Outcome)
		reconcilerUpdates.WithLabelValues("dropped_invalid").Inc()
		d.Ack()
		return
	}

	if err := r.Apply(ctx, event); err != nil {
		r.log.Error("failed to apply status event", "reminder_id", event.ReminderID, "error", err)
		d.Nack(true)
		return
	}
	d.Ack()
}
