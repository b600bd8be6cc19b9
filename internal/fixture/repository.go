package fixture

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository reads fixtures from the database. Writes happen in the
// ingestion service, outside this repository.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListUpcoming returns fixtures with kickoff inside [from, to], ordered by
// kickoff time.
func (r *Repository) ListUpcoming(ctx context.Context, from, to time.Time) ([]Fixture, error) {
	query := `
		SELECT id, home_team, away_team, league_name, kickoff_utc, stage, metadata
		FROM fixtures
		WHERE kickoff_utc >= $1 AND kickoff_utc <= $2
		ORDER BY kickoff_utc
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

// GetByID retrieves a single fixture, or nil if it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Fixture, error) {
	query := `
		SELECT id, home_team, away_team, league_name, kickoff_utc, stage, metadata
		FROM fixtures WHERE id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	f, err := scanFixture(rows)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFixture(rows *sql.Rows) (Fixture, error) {
	var f Fixture
	var stage sql.NullString
	var metadata []byte
	if err := rows.Scan(&f.ID, &f.HomeTeam, &f.AwayTeam, &f.LeagueName, &f.KickoffUTC, &stage, &metadata); err != nil {
		return Fixture{}, fmt.Errorf("failed to scan fixture: %w", err)
	}
	f.Stage = stage.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return Fixture{}, fmt.Errorf("failed to decode fixture metadata: %w", err)
		}
	}
	return f, nil
}
