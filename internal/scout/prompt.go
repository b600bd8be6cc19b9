package scout

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fixturescout/scout/internal/fixture"
	"github.com/fixturescout/scout/internal/user"
)

// promptFixture is the flattened fixture view handed to the generation
// service. Kickoff is rendered as an RFC 3339 string for easier consumption.
type promptFixture struct {
	FixtureID  string         `json:"fixture_id"`
	HomeTeam   string         `json:"home_team_name"`
	AwayTeam   string         `json:"away_team_name"`
	LeagueName string         `json:"league_name"`
	KickoffUTC string         `json:"match_datetime_utc"`
	Stage      string         `json:"stage,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// BuildPrompt assembles the full generation prompt: the user's selection
// criteria, the in-window fixtures as JSON, previously rejected matches to
// steer away from, and the fixed response-format instructions.
func BuildPrompt(criteria string, fixtures []fixture.Fixture, feedback []user.FeedbackExample) string {
	views := make([]promptFixture, 0, len(fixtures))
	for _, f := range fixtures {
		views = append(views, promptFixture{
			FixtureID:  f.ID,
			HomeTeam:   f.HomeTeam,
			AwayTeam:   f.AwayTeam,
			LeagueName: f.LeagueName,
			KickoffUTC: f.KickoffUTC.UTC().Format(time.RFC3339),
			Stage:      f.Stage,
			Metadata:   f.Metadata,
		})
	}
	fixturesJSON, _ := json.MarshalIndent(views, "", "  ")

	var b strings.Builder
	b.WriteString(`You are Fixture Scout. Select the football matches relevant to the user from the upcoming fixtures below.
For each selected match provide a brief reason, an importance score, and the reminder triggers to schedule.

User's match selection criteria:
"`)
	b.WriteString(criteria)
	b.WriteString("\"\n\nAvailable upcoming fixtures:\n")
	b.Write(fixturesJSON)
	b.WriteString("\n")

	if len(feedback) > 0 {
		b.WriteString("\nThe user was NOT interested in matches like these; avoid selecting similar ones:\n")
		for _, e := range feedback {
			fmt.Fprintf(&b, "- %s vs %s (%s)", e.HomeTeam, e.AwayTeam, e.LeagueName)
			if e.Reason != "" {
				fmt.Fprintf(&b, " (user said: %q)", e.Reason)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Instructions:
1. Select ONLY matches that fit the criteria.
2. For each selected match provide:
   a. "fixture_id": the exact fixture_id from the input.
   b. "reason": a brief explanation (max 100 characters) of why the match is relevant.
   c. "importance_score": an integer from 1 (mildly interesting) to 5 (critically important).
   d. "reminder_triggers": an array of objects, each with:
      i.  "reminder_offset_minutes_before_kickoff": minutes before kickoff (e.g. 1440, 120, 60).
          For importance 4-5 consider a reminder 24h before AND 1-2h before.
      ii. "reminder_mode": "email" or "phone_call_mock". Use "phone_call_mock" only for
          importance 5, for the trigger closest to kickoff.
      iii."custom_message": a short, engaging reminder message (max 150 characters).

Respond with a VALID JSON ARRAY of selected matches, strictly following:
[{"fixture_id": "string", "reason": "string", "importance_score": 1,
  "reminder_triggers": [{"reminder_offset_minutes_before_kickoff": 60,
  "reminder_mode": "email", "custom_message": "string"}]}]

If no matches meet the criteria, output an empty JSON array: [].
DO NOT include any explanation or text outside the JSON array.
`)
	return b.String()
}
