package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fixturescout/scout/internal/fixture"
	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/internal/user"
)

// DefaultLookoutWindowDays bounds how far ahead fixtures are considered for
// a generation pass.
const DefaultLookoutWindowDays = 14

// feedbackLimit caps how many rejected-match examples go into the prompt.
const feedbackLimit = 20

const snippetLen = 200

// ReminderStore is the reminder persistence surface the generator needs.
// Both methods enforce the store-side bounds; the generator owns chunking.
type ReminderStore interface {
	DeletePendingByFixtures(ctx context.Context, userID string, fixtureIDs []string) (int64, error)
	CreateBatch(ctx context.Context, reminders []reminder.Reminder) error
}

// FixtureStore supplies the in-window fixture set.
type FixtureStore interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error)
}

// PreferenceStore supplies selection criteria and negative feedback.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID string) (*user.Preference, error)
	ListNegativeFeedback(ctx context.Context, userID string, limit int) ([]user.FeedbackExample, error)
}

// SummaryPublisher receives run summaries for the audit stream. Optional.
type SummaryPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Summary describes one generation pass. It feeds operational visibility,
// never control flow.
type Summary struct {
	UserID           string `json:"user_id"`
	FixturesAnalyzed int    `json:"fixtures_analyzed"`
	MatchesSelected  int    `json:"matches_selected"`
	RemindersCreated int    `json:"reminders_created"`
	SkippedItems     int    `json:"skipped_items"`
	DeletedPending   int64  `json:"deleted_pending"`
}

// Generator turns a generation-service response into a replacement set of
// reminder records for one user. Re-running a pass with the same output
// converges on the same reminder set instead of accumulating duplicates.
type Generator struct {
	gen       GenerationClient
	reminders ReminderStore
	fixtures  FixtureStore
	users     PreferenceStore
	summaries SummaryPublisher
	log       *slog.Logger

	lookoutWindow time.Duration
	now           func() time.Time
}

func NewGenerator(gen GenerationClient, reminders ReminderStore, fixtures FixtureStore, users PreferenceStore, summaries SummaryPublisher, log *slog.Logger) *Generator {
	return &Generator{
		gen:           gen,
		reminders:     reminders,
		fixtures:      fixtures,
		users:         users,
		summaries:     summaries,
		log:           log,
		lookoutWindow: DefaultLookoutWindowDays * 24 * time.Hour,
		now:           time.Now,
	}
}

// SetLookoutWindow overrides the fixture window. Zero or negative values
// are ignored.
func (g *Generator) SetLookoutWindow(d time.Duration) {
	if d > 0 {
		g.lookoutWindow = d
	}
}

// Run executes one generation pass for the user. On a generation failure
// nothing is written: the user keeps their previously generated reminders
// until the next successful pass.
func (g *Generator) Run(ctx context.Context, userID string) (*Summary, error) {
	pref, err := g.users.GetPreference(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preference for user %s: %w", userID, err)
	}
	if pref.SelectionPrompt == "" {
		return nil, fmt.Errorf("selection prompt not set for user %s", userID)
	}

	now := g.now().UTC()
	fixtures, err := g.fixtures.ListUpcoming(ctx, now, now.Add(g.lookoutWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming fixtures: %w", err)
	}

	summary := &Summary{UserID: userID, FixturesAnalyzed: len(fixtures)}
	if len(fixtures) == 0 {
		g.log.Info("no upcoming fixtures in window", "user_id", userID)
		g.publishSummary(ctx, summary)
		return summary, nil
	}

	feedback, err := g.users.ListNegativeFeedback(ctx, userID, feedbackLimit)
	if err != nil {
		// Feedback only biases selection; a pass without it is still valid.
		g.log.Warn("failed to load negative feedback", "user_id", userID, "error", err)
	}

	prompt := BuildPrompt(pref.SelectionPrompt, fixtures, feedback)

	raw, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed for user %s: %w", userID, err)
	}

	selections, err := ParseSelections(raw)
	if err != nil {
		return nil, fmt.Errorf("generation response for user %s: %w", userID, err)
	}
	summary.MatchesSelected = len(selections)

	if len(selections) == 0 {
		g.log.Info("no matches selected", "user_id", userID)
		g.publishSummary(ctx, summary)
		return summary, nil
	}

	fixturesByID := make(map[string]fixture.Fixture, len(fixtures))
	fixtureIDs := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		fixturesByID[f.ID] = f
		fixtureIDs = append(fixtureIDs, f.ID)
	}

	deleted, err := g.clearPendingReminders(ctx, userID, fixtureIDs)
	if err != nil {
		return nil, err
	}
	summary.DeletedPending = deleted

	newReminders := g.buildReminders(userID, selections, fixturesByID, prompt, raw, now, summary)

	if err := g.createReminders(ctx, newReminders); err != nil {
		return nil, err
	}
	summary.RemindersCreated = len(newReminders)
	remindersCreated.Add(float64(len(newReminders)))

	g.log.Info("generation pass complete",
		"user_id", userID,
		"fixtures_analyzed", summary.FixturesAnalyzed,
		"matches_selected", summary.MatchesSelected,
		"reminders_created", summary.RemindersCreated,
		"deleted_pending", summary.DeletedPending,
	)
	g.publishSummary(ctx, summary)
	return summary, nil
}

// clearPendingReminders deletes the user's still-pending reminders for the
// in-window fixtures, chunking the inclusion filter to the store bound.
// Dispatched or resolved reminders represent committed downstream work and
// are never retracted.
func (g *Generator) clearPendingReminders(ctx context.Context, userID string, fixtureIDs []string) (int64, error) {
	var deleted int64
	for start := 0; start < len(fixtureIDs); start += reminder.MaxInFilterSize {
		end := start + reminder.MaxInFilterSize
		if end > len(fixtureIDs) {
			end = len(fixtureIDs)
		}
		n, err := g.reminders.DeletePendingByFixtures(ctx, userID, fixtureIDs[start:end])
		if err != nil {
			return deleted, fmt.Errorf("failed to clear pending reminders for user %s: %w", userID, err)
		}
		deleted += n
	}
	return deleted, nil
}

func (g *Generator) buildReminders(userID string, selections []Selection, fixturesByID map[string]fixture.Fixture, prompt, raw string, now time.Time, summary *Summary) []reminder.Reminder {
	var out []reminder.Reminder
	for _, sel := range selections {
		f, ok := fixturesByID[sel.FixtureID]
		if !ok {
			g.log.Warn("selection references unknown fixture, skipping",
				"user_id", userID, "fixture_id", sel.FixtureID)
			summary.SkippedItems++
			continue
		}

		for _, trigger := range sel.Triggers {
			if !trigger.Valid() {
				g.log.Warn("malformed reminder trigger, skipping",
					"user_id", userID, "fixture_id", sel.FixtureID,
					"offset_minutes", trigger.OffsetMinutes, "mode", trigger.Mode)
				summary.SkippedItems++
				continue
			}

			out = append(out, reminder.Reminder{
				ID:              uuid.New().String(),
				UserID:          userID,
				FixtureID:       sel.FixtureID,
				Reason:          sel.Reason,
				ImportanceScore: sel.ImportanceScore,
				Mode:            trigger.Mode,
				Message:         trigger.Message,
				KickoffUTC:      f.KickoffUTC,
				OffsetMinutes:   trigger.OffsetMinutes,
				TriggerAtUTC:    f.KickoffUTC.Add(-time.Duration(trigger.OffsetMinutes) * time.Minute),
				Status:          reminder.StatusPending,
				PromptSnippet:   snippet(prompt),
				ResponseSnippet: snippet(raw),
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
	}
	return out
}

// createReminders commits the new set in write batches bounded by the
// store's maximum operation count. Batches are atomic individually, not
// with respect to each other; a crash mid-sequence heals on the next pass.
func (g *Generator) createReminders(ctx context.Context, reminders []reminder.Reminder) error {
	for start := 0; start < len(reminders); start += reminder.MaxWriteBatchOps {
		end := start + reminder.MaxWriteBatchOps
		if end > len(reminders) {
			end = len(reminders)
		}
		if err := g.reminders.CreateBatch(ctx, reminders[start:end]); err != nil {
			return fmt.Errorf("failed to create reminder batch: %w", err)
		}
	}
	return nil
}

func (g *Generator) publishSummary(ctx context.Context, summary *Summary) {
	if g.summaries == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := g.summaries.Publish(ctx, summary.UserID, payload); err != nil {
		g.log.Warn("failed to publish run summary", "user_id", summary.UserID, "error", err)
	}
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}
