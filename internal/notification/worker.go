package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fixturescout/scout/internal/dispatch"
	"github.com/fixturescout/scout/pkg/messaging"
)

// DefaultWorkerCount is the number of goroutines draining the task queue.
const DefaultWorkerCount = 4

// DefaultQueueSize bounds how many accepted-but-unprocessed deliveries the
// worker holds. A full queue nacks the delivery back for redelivery.
const DefaultQueueSize = 64

// processedKeyTTL is how long a reminder/mode pair is remembered as
// processed for duplicate suppression.
const processedKeyTTL = 24 * time.Hour

// AttemptStore persists the per-attempt audit trail.
type AttemptStore interface {
	Create(ctx context.Context, a *Attempt) error
	Finish(ctx context.Context, id, status, errDetail string) error
}

// StatusPublisher pushes status events onto the status queue.
type StatusPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

type task struct {
	msg dispatch.Message
}

// Worker consumes dispatch messages for one delivery mode. Deliveries are
// acknowledged as soon as they are handed to the bounded task queue, so
// slow sends never trip channel redelivery timeouts; the cost is that a
// crash with tasks still queued loses those resolutions, an accepted risk
// of the at-least-once design.
type Worker struct {
	sender   Sender
	attempts AttemptStore
	status   StatusPublisher
	redis    *redis.Client
	log      *slog.Logger

	tasks chan task
	wg    sync.WaitGroup
}

func NewWorker(sender Sender, attempts AttemptStore, status StatusPublisher, redisClient *redis.Client, log *slog.Logger) *Worker {
	return &Worker{
		sender:   sender,
		attempts: attempts,
		status:   status,
		redis:    redisClient,
		log:      log,
		tasks:    make(chan task, DefaultQueueSize),
	}
}

// Start launches the worker pool. Workers exit when the context is
// cancelled; Wait blocks until they have drained.
func (w *Worker) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-w.tasks:
					w.process(ctx, t.msg)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// HandleDelivery is the channel-consumer entry point. It acks unprocessable
// payloads (redelivery cannot fix them), acks accepted tasks before
// processing, and nacks for redelivery when the task queue is saturated.
func (w *Worker) HandleDelivery(d messaging.Delivery) {
	var msg dispatch.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.log.Error("undecodable dispatch message, dropping", "error", err)
		d.Ack()
		return
	}
	if msg.Mode != w.sender.Mode() {
		w.log.Error("dispatch message mode does not match this worker, dropping",
			"reminder_id", msg.ReminderID, "mode", msg.Mode, "worker_mode", w.sender.Mode())
		// The reminder still needs a terminal status; without an event it
		// would sit in queued_for_notification until an operator noticed.
		w.publishStatus(context.Background(), msg, Failed(OutcomeInternalError,
			fmt.Sprintf("message for mode %s delivered to %s worker", msg.Mode, w.sender.Mode())))
		d.Ack()
		return
	}

	select {
	case w.tasks <- task{msg: msg}:
		d.Ack()
	default:
		w.log.Warn("task queue saturated, returning delivery for redelivery",
			"reminder_id", msg.ReminderID)
		queueSaturated.Inc()
		d.Nack(true)
	}
}

func (w *Worker) process(ctx context.Context, msg dispatch.Message) {
	if w.alreadyProcessed(ctx, msg) {
		w.log.Info("duplicate delivery, skipping", "reminder_id", msg.ReminderID)
		return
	}

	attempt := &Attempt{
		ID:            uuid.New().String(),
		ReminderID:    msg.ReminderID,
		UserID:        msg.UserID,
		Mode:          msg.Mode,
		ContactTarget: msg.ContactTarget,
		Status:        AttemptStatusProcessing,
		CreatedAt:     time.Now().UTC(),
	}
	if err := w.attempts.Create(ctx, attempt); err != nil {
		// The attempt log is audit-only; a failed write never blocks the send.
		w.log.Error("failed to record attempt", "reminder_id", msg.ReminderID, "error", err)
	}

	outcome := w.send(ctx, msg)
	sendOutcomes.WithLabelValues(string(msg.Mode), outcome.Raw).Inc()

	if err := w.attempts.Finish(ctx, attempt.ID, outcome.Raw, outcome.Reason); err != nil {
		w.log.Error("failed to finish attempt", "attempt_id", attempt.ID, "error", err)
	}

	// The status event goes out unconditionally; it is what lets the
	// reconciler close the reminder out exactly once.
	w.publishStatus(ctx, msg, outcome)
	w.markProcessed(ctx, msg)
}

// send invokes the mode-specific sender, converting a panic into a terminal
// internal-error outcome so the status event still goes out.
func (w *Worker) send(ctx context.Context, msg dispatch.Message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("sender panicked", "reminder_id", msg.ReminderID, "panic", r)
			outcome = Failed(OutcomeInternalError, fmt.Sprintf("sender panic: %v", r))
		}
	}()
	return w.sender.Send(ctx, msg)
}

func (w *Worker) publishStatus(ctx context.Context, msg dispatch.Message, outcome Outcome) {
	event := StatusEvent{
		ReminderID:   msg.ReminderID,
		UserID:       msg.UserID,
		Mode:         msg.Mode,
		Outcome:      outcome.Raw,
		TimestampUTC: time.Now().UTC(),
		ErrorDetail:  outcome.Reason,
	}
	body, err := json.Marshal(event)
	if err == nil {
		err = w.status.Publish(ctx, dispatch.StatusQueue, body)
	}
	if err != nil {
		// Without this event the reminder stays queued_for_notification
		// until an operator intervenes.
		w.log.Error("failed to publish status event",
			"reminder_id", msg.ReminderID, "outcome", outcome.Raw, "error", err)
		statusPublishFailures.Inc()
	}
}

func (w *Worker) alreadyProcessed(ctx context.Context, msg dispatch.Message) bool {
	if w.redis == nil {
		return false
	}
	exists, err := w.redis.Exists(ctx, processedKey(msg)).Result()
	if err != nil {
		w.log.Warn("duplicate check failed, processing anyway", "error", err)
		return false
	}
	return exists > 0
}

func (w *Worker) markProcessed(ctx context.Context, msg dispatch.Message) {
	if w.redis == nil {
		return
	}
	if err := w.redis.Set(ctx, processedKey(msg), "1", processedKeyTTL).Err(); err != nil {
		w.log.Warn("failed to mark delivery processed", "error", err)
	}
}

func processedKey(msg dispatch.Message) string {
	return fmt.Sprintf("notif:processed:%s:%s", msg.ReminderID, msg.Mode)
}
