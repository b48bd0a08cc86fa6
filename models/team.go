package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamSize is fixed: slot 1 is the captain, slots 2 and 3 are optional invitees.
const TeamSize = 3

type TeamSlot struct {
	PlayerID    *uuid.UUID `json:"player_id,omitempty"`
	Confirmed   bool       `json:"confirmed"`
	DisplayName string     `json:"display_name,omitempty"`
}

func (s TeamSlot) Filled() bool {
	return s.PlayerID != nil
}

type Team struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	Name          string             `json:"name" db:"name"`
	Slots         [TeamSize]TeamSlot `json:"slots"`
	TeamConfirmed bool               `json:"team_confirmed" db:"team_confirmed"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

// CaptainID returns the player in slot 1.
func (t *Team) CaptainID() uuid.UUID {
	if t.Slots[0].PlayerID == nil {
		return uuid.Nil
	}
	return *t.Slots[0].PlayerID
}

// SlotOf returns the zero-based slot index occupied by playerID, or -1.
func (t *Team) SlotOf(playerID uuid.UUID) int {
	for i, slot := range t.Slots {
		if slot.PlayerID != nil && *slot.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (t *Team) HasMember(playerID uuid.UUID) bool {
	return t.SlotOf(playerID) >= 0
}

// AllSlotsConfirmed reports whether every filled slot has accepted.
func (t *Team) AllSlotsConfirmed() bool {
	for _, slot := range t.Slots {
		if slot.Filled() && !slot.Confirmed {
			return false
		}
	}
	return true
}

// MemberIDs returns the filled slot players in slot order.
func (t *Team) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, TeamSize)
	for _, slot := range t.Slots {
		if slot.PlayerID != nil {
			ids = append(ids, *slot.PlayerID)
		}
	}
	return ids
}
