package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/fixturescout/scout/internal/dispatch"
	"github.com/fixturescout/scout/internal/reminder"
)

// Sender delivers a dispatch message over one channel. Implementations
// report every result as an Outcome; they never panic across this boundary.
type Sender interface {
	Send(ctx context.Context, msg dispatch.Message) Outcome
	Mode() reminder.Mode
}

// Registry holds the available senders keyed by delivery mode.
type Registry struct {
	senders map[reminder.Mode]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[reminder.Mode]Sender)}
}

func (r *Registry) Register(s Sender) {
	r.senders[s.Mode()] = s
}

func (r *Registry) Get(mode reminder.Mode) (Sender, error) {
	s, ok := r.senders[mode]
	if !ok {
		return nil, fmt.Errorf("no sender registered for mode: %s", mode)
	}
	return s, nil
}

// EmailSender delivers reminders by email through Resend. Without an API
// key it runs in mock mode: the send is logged and reported as
// sent_mock_email, which keeps local environments fully exercisable.
type EmailSender struct {
	client *resend.Client
	from   string
	log    *slog.Logger
}

func NewEmailSender(apiKey, from string, log *slog.Logger) *EmailSender {
	s := &EmailSender{from: from, log: log}
	if apiKey != "" {
		s.client = resend.NewClient(apiKey)
	}
	return s
}

func (s *EmailSender) Mode() reminder.Mode {
	return reminder.ModeEmail
}

func (s *EmailSender) Send(ctx context.Context, msg dispatch.Message) Outcome {
	if msg.ContactTarget == "" {
		s.log.Error("no email address for reminder",
			"reminder_id", msg.ReminderID, "user_id", msg.UserID)
		return Failed(OutcomeNoEmailAddress, "dispatch message carried no email address")
	}

	if s.client == nil {
		s.log.Info("mock email sent",
			"to", msg.ContactTarget, "reminder_id", msg.ReminderID, "message", msg.Message)
		return Delivered(OutcomeSentMockEmail)
	}

	subject := fmt.Sprintf("Match reminder: kickoff at %s", msg.KickoffUTC.Format("15:04 MST, Jan 2"))
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.ContactTarget},
		Subject: subject,
		Text:    msg.Message,
	})
	if err != nil {
		s.log.Error("email provider error",
			"reminder_id", msg.ReminderID, "error", err)
		return Failed(OutcomeProviderError, err.Error())
	}
	return Delivered(OutcomeSentEmail)
}

// PhoneCallMockSender simulates a voice-call channel. It only logs; there
// is no real telephony backend.
type PhoneCallMockSender struct {
	log *slog.Logger
}

func NewPhoneCallMockSender(log *slog.Logger) *PhoneCallMockSender {
	return &PhoneCallMockSender{log: log}
}

func (s *PhoneCallMockSender) Mode() reminder.Mode {
	return reminder.ModePhoneCallMock
}

func (s *PhoneCallMockSender) Send(ctx context.Context, msg dispatch.Message) Outcome {
	if msg.ContactTarget == "" {
		s.log.Error("no phone number for reminder",
			"reminder_id", msg.ReminderID, "user_id", msg.UserID)
		return Failed(OutcomeNoPhoneNumber, "dispatch message carried no phone number")
	}

	s.log.Info("mock phone call placed",
		"to", msg.ContactTarget, "reminder_id", msg.ReminderID, "message", msg.Message)
	return Delivered(OutcomeSentMockPhoneCall)
}
