package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fixturescout/scout/internal/dispatch"
	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/pkg/messaging"
)

type mockAcker struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
}

func (a *mockAcker) Ack() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = true
	return nil
}

func (a *mockAcker) Nack(requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = true
	a.requeue = requeue
	return nil
}

type mockSender struct {
	mode    reminder.Mode
	outcome Outcome
	panics  bool
}

func (m *mockSender) Mode() reminder.Mode { return m.mode }

func (m *mockSender) Send(ctx context.Context, msg dispatch.Message) Outcome {
	if m.panics {
		panic("provider client exploded")
	}
	return m.outcome
}

type mockAttemptStore struct {
	mu        sync.Mutex
	created   []Attempt
	finished  map[string]string
	createErr error
}

func newMockAttemptStore() *mockAttemptStore {
	return &mockAttemptStore{finished: make(map[string]string)}
}

func (m *mockAttemptStore) Create(ctx context.Context, a *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, *a)
	return nil
}

func (m *mockAttemptStore) Finish(ctx context.Context, id, status, errDetail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[id] = status
	return nil
}

type mockStatusPublisher struct {
	events chan StatusEvent
	err    error
}

func newMockStatusPublisher() *mockStatusPublisher {
	return &mockStatusPublisher{events: make(chan StatusEvent, 16)}
}

func (m *mockStatusPublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	if queueName != dispatch.StatusQueue {
		return errors.New("published to the wrong queue: " + queueName)
	}
	var e StatusEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return err
	}
	m.events <- e
	return nil
}

func (m *mockStatusPublisher) waitForEvent(t *testing.T) StatusEvent {
	t.Helper()
	select {
	case e := <-m.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status event")
		return StatusEvent{}
	}
}

func deliveryFor(t *testing.T, msg dispatch.Message) (messaging.Delivery, *mockAcker) {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	acker := &mockAcker{}
	return messaging.NewDelivery(body, acker), acker
}

func TestWorker_ProcessesDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := newMockAttemptStore()
	status := newMockStatusPublisher()
	sender := &mockSender{mode: reminder.ModeEmail, outcome: Delivered(OutcomeSentMockEmail)}

	w := NewWorker(sender, attempts, status, nil, testLogger())
	w.Start(ctx, 1)

	msg := dispatchMessage(reminder.ModeEmail, "fan@example.com")
	d, acker := deliveryFor(t, msg)
	w.HandleDelivery(d)

	event := status.waitForEvent(t)
	if event.ReminderID != "r1" || event.Outcome != OutcomeSentMockEmail {
		t.Errorf("unexpected status event: %+v", event)
	}
	if event.Mode != reminder.ModeEmail {
		t.Errorf("expected mode email, got %s", event.Mode)
	}

	if !acker.acked {
		t.Error("delivery should be acked on enqueue")
	}

	attempts.mu.Lock()
	defer attempts.mu.Unlock()
	if len(attempts.created) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts.created))
	}
	if got := attempts.finished[attempts.created[0].ID]; got != OutcomeSentMockEmail {
		t.Errorf("expected attempt finished with %s, got %s", OutcomeSentMockEmail, got)
	}
}

func TestWorker_FailedSendStillPublishesStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := newMockStatusPublisher()
	sender := &mockSender{
		mode:    reminder.ModeEmail,
		outcome: Failed(OutcomeNoEmailAddress, "dispatch message carried no email address"),
	}

	w := NewWorker(sender, newMockAttemptStore(), status, nil, testLogger())
	w.Start(ctx, 1)

	d, _ := deliveryFor(t, dispatchMessage(reminder.ModeEmail, ""))
	w.HandleDelivery(d)

	event := status.waitForEvent(t)
	if event.Outcome != OutcomeNoEmailAddress {
		t.Errorf("expected %s, got %s", OutcomeNoEmailAddress, event.Outcome)
	}
	if event.ErrorDetail == "" {
		t.Error("expected error detail on a failed outcome")
	}
}

func TestWorker_SenderPanicBecomesInternalError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := newMockStatusPublisher()
	sender := &mockSender{mode: reminder.ModeEmail, panics: true}

	w := NewWorker(sender, newMockAttemptStore(), status, nil, testLogger())
	w.Start(ctx, 1)

	d, _ := deliveryFor(t, dispatchMessage(reminder.ModeEmail, "fan@example.com"))
	w.HandleDelivery(d)

	event := status.waitForEvent(t)
	if event.Outcome != OutcomeInternalError {
		t.Errorf("expected %s after a panic, got %s", OutcomeInternalError, event.Outcome)
	}
}

func TestWorker_AttemptLogFailureDoesNotBlockSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := newMockAttemptStore()
	attempts.createErr = errors.New("attempts table unavailable")
	status := newMockStatusPublisher()
	sender := &mockSender{mode: reminder.ModeEmail, outcome: Delivered(OutcomeSentMockEmail)}

	w := NewWorker(sender, attempts, status, nil, testLogger())
	w.Start(ctx, 1)

	d, _ := deliveryFor(t, dispatchMessage(reminder.ModeEmail, "fan@example.com"))
	w.HandleDelivery(d)

	event := status.waitForEvent(t)
	if event.Outcome != OutcomeSentMockEmail {
		t.Errorf("send should proceed despite audit failure, got %s", event.Outcome)
	}
}

func TestWorker_DropsUndecodablePayload(t *testing.T) {
	sender := &mockSender{mode: reminder.ModeEmail}
	w := NewWorker(sender, newMockAttemptStore(), newMockStatusPublisher(), nil, testLogger())

	acker := &mockAcker{}
	w.HandleDelivery(messaging.NewDelivery([]byte("not json"), acker))

	if !acker.acked {
		t.Error("undecodable payload should be acked so it is not redelivered")
	}
	if acker.nacked {
		t.Error("undecodable payload must not be nacked")
	}
}

func TestWorker_ModeMismatchResolvesReminder(t *testing.T) {
	sender := &mockSender{mode: reminder.ModeEmail}
	status := newMockStatusPublisher()
	w := NewWorker(sender, newMockAttemptStore(), status, nil, testLogger())

	d, acker := deliveryFor(t, dispatchMessage(reminder.ModePhoneCallMock, "+15550100"))
	w.HandleDelivery(d)

	if !acker.acked {
		t.Error("mismatched delivery should be acked and dropped")
	}

	event := status.waitForEvent(t)
	if event.ReminderID != "r1" {
		t.Errorf("status event should target the dropped reminder, got %q", event.ReminderID)
	}
	if event.Outcome != OutcomeInternalError {
		t.Errorf("expected %s, got %s", OutcomeInternalError, event.Outcome)
	}
	if event.ErrorDetail == "" {
		t.Error("expected error detail explaining the drop")
	}
}

func TestWorker_SaturatedQueueNacksForRedelivery(t *testing.T) {
	// No workers started, so the task queue only drains into its buffer.
	sender := &mockSender{mode: reminder.ModeEmail, outcome: Delivered(OutcomeSentMockEmail)}
	w := NewWorker(sender, newMockAttemptStore(), newMockStatusPublisher(), nil, testLogger())

	for i := 0; i < DefaultQueueSize; i++ {
		d, acker := deliveryFor(t, dispatchMessage(reminder.ModeEmail, "fan@example.com"))
		w.HandleDelivery(d)
		if !acker.acked {
			t.Fatalf("delivery %d should be acked on enqueue", i)
		}
	}

	d, acker := deliveryFor(t, dispatchMessage(reminder.ModeEmail, "fan@example.com"))
	w.HandleDelivery(d)
	if !acker.nacked {
		t.Fatal("delivery past the queue bound should be nacked")
	}
	if !acker.requeue {
		t.Error("saturation nack should request redelivery")
	}
}
