package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/google/uuid"
)

// Participants is a tournament's registration list split by confirmation.
type Participants struct {
	Confirmed []*models.Registration `json:"confirmed"`
	Pending   []*models.Registration `json:"pending"`
}

type RegistrationService interface {
	// Register creates a pending registration. The caller must be on the team.
	Register(ctx context.Context, teamID, tournamentID, callerID uuid.UUID) (*models.Registration, error)
	ModeratorConfirm(ctx context.Context, registrationID, moderatorID uuid.UUID) (*models.Registration, error)
	// ModeratorDeny removes the registration; the team may register again later.
	ModeratorDeny(ctx context.Context, registrationID, moderatorID uuid.UUID) error
	ListParticipants(ctx context.Context, tournamentID uuid.UUID) (*Participants, error)
	ListPendingRegistrations(ctx context.Context) ([]*models.Registration, error)
	ListMyRegistrations(ctx context.Context, playerID uuid.UUID) ([]*models.Registration, error)
}

type RegistrationServiceOptions struct {
	// EnforceCapacity turns teams_total into a hard limit on confirmed registrations.
	EnforceCapacity bool
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	tournamentRepo   repositories.TournamentRepository
	moderationRepo   repositories.ModerationRepository
	players          PlayerDirectory
	opts             RegistrationServiceOptions
	logger           *slog.Logger
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	moderationRepo repositories.ModerationRepository,
	players PlayerDirectory,
	opts RegistrationServiceOptions,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		tournamentRepo:   tournamentRepo,
		moderationRepo:   moderationRepo,
		players:          players,
		opts:             opts,
		logger:           logger,
	}
}

func mapRegistrationError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrRegistrationConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrTournamentCapacityReached):
		return ErrTournamentFull
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationTeamInvalid):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrRegistrationTournamentInvalid),
		errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	}
	return nil
}

func (s *registrationService) Register(ctx context.Context, teamID, tournamentID, callerID uuid.UUID) (*models.Registration, error) {
	team, err := loadTeamMembership(ctx, s.teamRepo, teamID, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := loadTournament(ctx, s.tournamentRepo, tournamentID); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		TournamentID: tournamentID,
		TeamID:       teamID,
	}
	if err := s.registrationRepo.Create(ctx, reg, s.opts.EnforceCapacity); err != nil {
		if mapped := mapRegistrationError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to register team %s for tournament %s: %w", teamID, tournamentID, err)
	}

	s.logger.InfoContext(ctx, "Team registered for tournament",
		slog.String("registration_id", reg.ID.String()),
		slog.String("team_id", teamID.String()),
		slog.String("tournament_id", tournamentID.String()))

	s.players.DecorateTeams(ctx, team)
	reg.Team = team
	return reg, nil
}

func (s *registrationService) ModeratorConfirm(ctx context.Context, registrationID, moderatorID uuid.UUID) (*models.Registration, error) {
	reg, err := s.moderationRepo.ConfirmRegistration(ctx, registrationID, moderatorID, s.opts.EnforceCapacity)
	if err != nil {
		if mapped := mapRegistrationError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to confirm registration %s: %w", registrationID, err)
	}

	s.logger.InfoContext(ctx, "Registration confirmed",
		slog.String("registration_id", registrationID.String()),
		slog.String("moderator_id", moderatorID.String()))
	return reg, nil
}

func (s *registrationService) ModeratorDeny(ctx context.Context, registrationID, moderatorID uuid.UUID) error {
	if err := s.moderationRepo.DenyRegistration(ctx, registrationID, moderatorID); err != nil {
		if mapped := mapRegistrationError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to deny registration %s: %w", registrationID, err)
	}

	s.logger.InfoContext(ctx, "Registration denied",
		slog.String("registration_id", registrationID.String()),
		slog.String("moderator_id", moderatorID.String()))
	return nil
}

func (s *registrationService) ListParticipants(ctx context.Context, tournamentID uuid.UUID) (*Participants, error) {
	if _, err := loadTournament(ctx, s.tournamentRepo, tournamentID); err != nil {
		return nil, err
	}

	regs, err := s.registrationRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %s: %w", tournamentID, err)
	}
	s.players.DecorateTeams(ctx, registrationTeams(regs)...)

	result := &Participants{
		Confirmed: make([]*models.Registration, 0),
		Pending:   make([]*models.Registration, 0),
	}
	for _, reg := range regs {
		if reg.Confirmed {
			result.Confirmed = append(result.Confirmed, reg)
		} else {
			result.Pending = append(result.Pending, reg)
		}
	}
	return result, nil
}

func (s *registrationService) ListPendingRegistrations(ctx context.Context) ([]*models.Registration, error) {
	regs, err := s.registrationRepo.ListUnconfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending registrations: %w", err)
	}
	s.players.DecorateTeams(ctx, registrationTeams(regs)...)
	return regs, nil
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, playerID uuid.UUID) ([]*models.Registration, error) {
	regs, err := s.registrationRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for player %s: %w", playerID, err)
	}
	s.players.DecorateTeams(ctx, registrationTeams(regs)...)
	return regs, nil
}
