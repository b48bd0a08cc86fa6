package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus mirrors the status column maintained by the tournament admin surface.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusOngoing   TournamentStatus = "ongoing"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// Tournament содержит только те поля, которые читает движок.
type Tournament struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	Name       string           `json:"name" db:"name"`
	Status     TournamentStatus `json:"status" db:"status"`
	TeamsTotal *int             `json:"teams_total,omitempty" db:"teams_total"` // capacity, advisory unless enforced
	MaxMaps    *int             `json:"max_maps,omitempty" db:"max_maps"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// MapLimit returns the tournament override or the given default.
func (t *Tournament) MapLimit(fallback int) int {
	if t != nil && t.MaxMaps != nil && *t.MaxMaps > 0 {
		return *t.MaxMaps
	}
	return fallback
}
