package fixture

import "time"

// Fixture is one scheduled match as ingested from the upstream feed.
// Fixtures are read-only inside this system; id and kickoff are stable keys
// even when a re-fetch refreshes the metadata blob.
type Fixture struct {
	ID         string         `json:"fixture_id"`
	HomeTeam   string         `json:"home_team_name"`
	AwayTeam   string         `json:"away_team_name"`
	LeagueName string         `json:"league_name"`
	KickoffUTC time.Time      `json:"kickoff_time_utc"`
	Stage      string         `json:"stage,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
