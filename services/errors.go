package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/squad-tournaments/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации. Все конкретные ошибки оборачивают ErrValidationFailed.
	ErrValidationFailed = errors.New("validation failed")
	ErrTeamNameRequired = errors.New("team name is required")
	ErrInviteeIsCaptain = errors.New("invitee cannot be the captain")
	ErrDuplicateInvitee = errors.New("the same player is invited twice")
	ErrInvalidMapNumber = errors.New("map number is out of range")
	ErrInvalidPlacement = errors.New("placement must be at least 1")
	ErrNegativeKills    = errors.New("kills cannot be negative")
	ErrInvalidImageType = errors.New("scoreboard must be a jpeg, png or webp image")
	ErrScoreboardTooBig = errors.New("scoreboard image is too large")
	ErrForeignImageRef  = errors.New("image reference does not belong to this team")

	// Ошибки конфликтов
	ErrTeamNameConflict      = errors.New("team name is already in use")
	ErrRegistrationConflict  = errors.New("team is already registered for this tournament")
	ErrSubmissionConflict    = errors.New("another submission already exists for that map")
	ErrOverwriteNotConfirmed = errors.New("a submission for this map already exists; resubmit with confirmation to overwrite it")
	ErrTournamentFull        = errors.New("tournament registration is full")

	// Ошибки аутентификации и авторизации
	ErrUnauthorized = errors.New("team is not a confirmed registrant of this tournament")
	ErrNotEligible  = errors.New("player is not eligible for this action")

	ErrMissingAsset          = errors.New("scoreboard image reference is required")
	ErrAssetStoreUnavailable = errors.New("scoreboard storage is not configured")

	// Нарушения машины состояний
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTeamNotReady      = errors.New("team has slots that have not accepted yet")

	// Ошибки, специфичные для сущностей
	ErrTeamNotFound         = errors.New("team not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
)

// validationError tags a specific validation failure with ErrValidationFailed.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

// IsRetryable reports whether a failed read may be retried by the caller.
// State-changing operations must never be retried blindly.
func IsRetryable(err error) bool {
	return errors.Is(err, repositories.ErrTransient)
}
