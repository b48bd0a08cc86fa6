package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/google/uuid"
)

// CreateTeamInput describes a new team. Invitee3 without Invitee2 is moved into slot 2.
type CreateTeamInput struct {
	CaptainID uuid.UUID
	Name      string
	Invitee2  *uuid.UUID
	Invitee3  *uuid.UUID
}

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	AcceptInvite(ctx context.Context, teamID, playerID uuid.UUID) (*models.Team, error)
	ListMyTeams(ctx context.Context, playerID uuid.UUID) ([]*models.Team, error)
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	// ModeratorConfirmTeam sets TeamConfirmed. Every filled slot must have accepted first.
	ModeratorConfirmTeam(ctx context.Context, teamID, moderatorID uuid.UUID) (*models.Team, error)
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	moderationRepo repositories.ModerationRepository
	players        PlayerDirectory
	logger         *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	moderationRepo repositories.ModerationRepository,
	players PlayerDirectory,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		moderationRepo: moderationRepo,
		players:        players,
		logger:         logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError(ErrTeamNameRequired)
	}

	invitee2, invitee3 := input.Invitee2, input.Invitee3
	if invitee2 == nil && invitee3 != nil {
		invitee2, invitee3 = invitee3, nil
	}
	for _, invitee := range []*uuid.UUID{invitee2, invitee3} {
		if invitee != nil && *invitee == input.CaptainID {
			return nil, validationError(ErrInviteeIsCaptain)
		}
	}
	if invitee2 != nil && invitee3 != nil && *invitee2 == *invitee3 {
		return nil, validationError(ErrDuplicateInvitee)
	}

	captain := input.CaptainID
	team := &models.Team{Name: name}
	team.Slots[0].PlayerID = &captain
	team.Slots[1].PlayerID = invitee2
	team.Slots[2].PlayerID = invitee3

	if err := s.teamRepo.Create(ctx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		case errors.Is(err, repositories.ErrTeamInvalidRoster):
			return nil, validationError(err)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.logger.InfoContext(ctx, "Team created",
		slog.String("team_id", team.ID.String()),
		slog.String("captain_id", captain.String()),
		slog.Int("invitees", len(team.MemberIDs())-1))

	s.players.DecorateTeams(ctx, team)
	return team, nil
}

func (s *teamService) AcceptInvite(ctx context.Context, teamID, playerID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.ConfirmSlot(ctx, teamID, playerID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamSlotNotAvailable):
			return nil, ErrNotEligible
		}
		return nil, fmt.Errorf("failed to accept invite to team %s: %w", teamID, err)
	}

	s.players.DecorateTeams(ctx, team)
	return team, nil
}

func (s *teamService) ListMyTeams(ctx context.Context, playerID uuid.UUID) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for player %s: %w", playerID, err)
	}
	s.players.DecorateTeams(ctx, teams...)
	return teams, nil
}

func (s *teamService) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	s.players.DecorateTeams(ctx, team)
	return team, nil
}

func (s *teamService) ModeratorConfirmTeam(ctx context.Context, teamID, moderatorID uuid.UUID) (*models.Team, error) {
	team, err := s.moderationRepo.ConfirmTeam(ctx, teamID, moderatorID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamNotReady):
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, ErrTeamNotReady)
		}
		return nil, fmt.Errorf("failed to confirm team %s: %w", teamID, err)
	}

	s.logger.InfoContext(ctx, "Team confirmed by moderator",
		slog.String("team_id", teamID.String()),
		slog.String("moderator_id", moderatorID.String()))

	s.players.DecorateTeams(ctx, team)
	return team, nil
}
