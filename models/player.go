package models

import "github.com/google/uuid"

// Player - внешняя учётная запись. Движок знает только идентификатор и геймертег.
type Player struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Gamertag *string   `json:"gamertag,omitempty" db:"gamertag"`
}
