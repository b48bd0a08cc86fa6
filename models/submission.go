package models

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionVoid     SubmissionStatus = "void"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected, SubmissionVoid:
		return true
	}
	return false
}

type Submission struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	TournamentID uuid.UUID        `json:"tournament_id" db:"tournament_id"`
	TeamID       uuid.UUID        `json:"team_id" db:"team_id"`
	MapNumber    int              `json:"map_number" db:"map_number"`
	Placement    *int             `json:"placement" db:"placement"`
	Kills        [TeamSize]int    `json:"kills"`
	ImageRef     string           `json:"scoreboard_image_ref" db:"scoreboard_image_ref"` // storage path, not a URL
	Status       SubmissionStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

func (s *Submission) TotalKills() int {
	total := 0
	for _, k := range s.Kills {
		total += k
	}
	return total
}

// SubmissionValues is the moderator-correctable part of a submission.
type SubmissionValues struct {
	MapNumber int           `json:"map_number"`
	Placement int           `json:"placement"`
	Kills     [TeamSize]int `json:"kills"`
}

// Matches reports whether the stored row already carries exactly these values.
func (v SubmissionValues) Matches(s *Submission) bool {
	if s == nil || s.MapNumber != v.MapNumber || s.Kills != v.Kills {
		return false
	}
	return s.Placement != nil && *s.Placement == v.Placement
}
