package scout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fixturescout/scout/internal/reminder"
)

// ErrGenerationResponse marks a generation response that failed to parse as
// the expected structure. It aborts the generation pass for the user; no
// reminders are written in that case.
var ErrGenerationResponse = errors.New("invalid generation response")

// Trigger is one (offset, mode, message) tuple the generation step produced
// for a selected fixture. One reminder record is created per trigger.
type Trigger struct {
	OffsetMinutes int           `json:"reminder_offset_minutes_before_kickoff"`
	Mode          reminder.Mode `json:"reminder_mode"`
	Message       string        `json:"custom_message"`
}

// Selection is one fixture the generation step picked, with the reasoning
// and the reminder triggers to materialize.
type Selection struct {
	FixtureID       string    `json:"fixture_id"`
	Reason          string    `json:"reason"`
	ImportanceScore int       `json:"importance_score"`
	Triggers        []Trigger `json:"reminder_triggers"`
}

// ParseSelections decodes the raw generation output. Markdown code fences
// are stripped first; an empty cleaned response means no selections. Any
// JSON or schema violation is an ErrGenerationResponse; per-item leniency
// is the generator's job, not the parser's.
func ParseSelections(raw string) ([]Selection, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, nil
	}

	var selections []Selection
	if err := json.Unmarshal([]byte(cleaned), &selections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationResponse, err)
	}

	for i, sel := range selections {
		if sel.FixtureID == "" {
			return nil, fmt.Errorf("%w: selection %d has no fixture id", ErrGenerationResponse, i)
		}
		if sel.ImportanceScore < 1 || sel.ImportanceScore > 5 {
			return nil, fmt.Errorf("%w: selection %d importance score %d outside [1,5]",
				ErrGenerationResponse, i, sel.ImportanceScore)
		}
		if len(sel.Triggers) == 0 {
			return nil, fmt.Errorf("%w: selection %d has no reminder triggers", ErrGenerationResponse, i)
		}
	}
	return selections, nil
}

// Valid reports whether a trigger is usable. Invalid triggers are skipped
// with a warning rather than failing the pass.
func (t Trigger) Valid() bool {
	return t.OffsetMinutes > 0 && t.Mode != "" && t.Message != ""
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
