package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is derived from approved submissions; the optional
// leaderboard_team_totals table is only a cache of it.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	TournamentID uuid.UUID `json:"tournament_id" db:"tournament_id"`
	TeamID       uuid.UUID `json:"team_id" db:"team_id"`
	TeamName     string    `json:"team_name,omitempty" db:"-"`
	MapsPlayed   int       `json:"maps_played" db:"maps_played"`
	TotalKills   int       `json:"total_kills" db:"total_kills"`
	TotalPoints  float64   `json:"total_points" db:"total_points"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
