package reminder

import (
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusQueued, false},
		{StatusSent, true},
		{StatusFailedUserNotFound, true},
		{StatusFailedInvalidUserData, true},
		{StatusFailedUnknownMode, true},
		{StatusFailedQueueing, true},
		{StatusFailedConfigError, true},
		{StatusErrorValidation, true},
		{StatusErrorProcessing, true},
		{StatusFailedDelivery, true},
		{StatusUpdateFallback("weird_new_outcome"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusUpdateFallback(t *testing.T) {
	s := StatusUpdateFallback("bounced_mailbox")
	if s != "status_update_bounced_mailbox" {
		t.Errorf("unexpected fallback status: %s", s)
	}
	if !s.IsStatusUpdateFallback() {
		t.Error("expected IsStatusUpdateFallback to report true")
	}
	if StatusSent.IsStatusUpdateFallback() {
		t.Error("sent is not a fallback status")
	}
}

func TestReminderValidate(t *testing.T) {
	valid := func() Reminder {
		kickoff := time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)
		return Reminder{
			ID:           "r1",
			UserID:       "u1",
			FixtureID:    "fx1",
			Mode:         ModeEmail,
			Message:      "Kickoff soon",
			KickoffUTC:   kickoff,
			TriggerAtUTC: kickoff.Add(-time.Hour),
			Status:       StatusPending,
		}
	}

	r := valid()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid reminder failed validation: %v", err)
	}

	mutations := map[string]func(*Reminder){
		"missing id":      func(r *Reminder) { r.ID = "" },
		"missing user":    func(r *Reminder) { r.UserID = "" },
		"missing fixture": func(r *Reminder) { r.FixtureID = "" },
		"missing mode":    func(r *Reminder) { r.Mode = "" },
		"missing message": func(r *Reminder) { r.Message = "" },
		"missing trigger": func(r *Reminder) { r.TriggerAtUTC = time.Time{} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := valid()
			mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
