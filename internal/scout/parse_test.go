package scout

import (
	"errors"
	"testing"

	"github.com/fixturescout/scout/internal/reminder"
)

func TestParseSelections(t *testing.T) {
	valid := `[{"fixture_id":"fx1","reason":"derby","importance_score":5,` +
		`"reminder_triggers":[{"reminder_offset_minutes_before_kickoff":60,` +
		`"reminder_mode":"email","custom_message":"Kickoff soon"}]}]`

	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantErr   bool
	}{
		{"plain json array", valid, 1, false},
		{"json code fence", "```json\n" + valid + "\n```", 1, false},
		{"bare code fence", "```\n" + valid + "\n```", 1, false},
		{"empty response", "", 0, false},
		{"whitespace only", "   \n\t ", 0, false},
		{"empty fenced block", "```json\n```", 0, false},
		{"empty array", "[]", 0, false},
		{"not json", "I could not find any interesting matches.", 0, true},
		{"missing fixture id", `[{"reason":"x","importance_score":3,"reminder_triggers":[{"reminder_offset_minutes_before_kickoff":60,"reminder_mode":"email","custom_message":"m"}]}]`, 0, true},
		{"importance too low", `[{"fixture_id":"fx1","importance_score":0,"reminder_triggers":[{"reminder_offset_minutes_before_kickoff":60,"reminder_mode":"email","custom_message":"m"}]}]`, 0, true},
		{"importance too high", `[{"fixture_id":"fx1","importance_score":6,"reminder_triggers":[{"reminder_offset_minutes_before_kickoff":60,"reminder_mode":"email","custom_message":"m"}]}]`, 0, true},
		{"no triggers", `[{"fixture_id":"fx1","importance_score":3,"reminder_triggers":[]}]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelections(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrGenerationResponse) {
					t.Errorf("expected ErrGenerationResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("expected %d selections, got %d", tt.wantCount, len(got))
			}
		})
	}
}

func TestParseSelections_Fields(t *testing.T) {
	raw := `[{"fixture_id":"fx42","reason":"title decider","importance_score":4,` +
		`"reminder_triggers":[` +
		`{"reminder_offset_minutes_before_kickoff":1440,"reminder_mode":"email","custom_message":"Tomorrow!"},` +
		`{"reminder_offset_minutes_before_kickoff":60,"reminder_mode":"phone_call_mock","custom_message":"One hour"}]}]`

	selections, err := ParseSelections(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selections) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(selections))
	}

	sel := selections[0]
	if sel.FixtureID != "fx42" {
		t.Errorf("expected fixture fx42, got %s", sel.FixtureID)
	}
	if sel.ImportanceScore != 4 {
		t.Errorf("expected importance 4, got %d", sel.ImportanceScore)
	}
	if len(sel.Triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(sel.Triggers))
	}
	if sel.Triggers[0].OffsetMinutes != 1440 || sel.Triggers[0].Mode != reminder.ModeEmail {
		t.Errorf("unexpected first trigger: %+v", sel.Triggers[0])
	}
	if sel.Triggers[1].Mode != reminder.ModePhoneCallMock {
		t.Errorf("unexpected second trigger mode: %s", sel.Triggers[1].Mode)
	}
}

func TestTriggerValid(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		want    bool
	}{
		{"valid", Trigger{OffsetMinutes: 60, Mode: reminder.ModeEmail, Message: "m"}, true},
		{"zero offset", Trigger{OffsetMinutes: 0, Mode: reminder.ModeEmail, Message: "m"}, false},
		{"negative offset", Trigger{OffsetMinutes: -30, Mode: reminder.ModeEmail, Message: "m"}, false},
		{"missing mode", Trigger{OffsetMinutes: 60, Message: "m"}, false},
		{"missing message", Trigger{OffsetMinutes: 60, Mode: reminder.ModeEmail}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trigger.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
