package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/google/uuid"
)

const shortIDLength = 8

// shortID is the fallback display name: the first characters of the identifier.
func shortID(id uuid.UUID) string {
	return id.String()[:shortIDLength]
}

// PlayerDirectory resolves display names for players. Lookups are best effort:
// a failed or empty lookup never fails the calling operation.
type PlayerDirectory interface {
	ResolveDisplayName(ctx context.Context, playerID uuid.UUID) string
	// DecorateTeams fills TeamSlot.DisplayName for every filled slot of the given teams.
	DecorateTeams(ctx context.Context, teams ...*models.Team)
}

type playerDirectory struct {
	repo   repositories.PlayerRepository
	logger *slog.Logger
}

func NewPlayerDirectory(repo repositories.PlayerRepository, logger *slog.Logger) PlayerDirectory {
	return &playerDirectory{repo: repo, logger: logger}
}

func (d *playerDirectory) ResolveDisplayName(ctx context.Context, playerID uuid.UUID) string {
	names := d.lookup(ctx, []uuid.UUID{playerID})
	if name, ok := names[playerID]; ok {
		return name
	}
	return shortID(playerID)
}

func (d *playerDirectory) DecorateTeams(ctx context.Context, teams ...*models.Team) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, team := range teams {
		if team == nil {
			continue
		}
		for _, id := range team.MemberIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return
	}

	names := d.lookup(ctx, ids)
	for _, team := range teams {
		if team == nil {
			continue
		}
		for i := range team.Slots {
			slot := &team.Slots[i]
			if slot.PlayerID == nil {
				continue
			}
			if name, ok := names[*slot.PlayerID]; ok {
				slot.DisplayName = name
			} else {
				slot.DisplayName = shortID(*slot.PlayerID)
			}
		}
	}
}

func (d *playerDirectory) lookup(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]string {
	names, err := d.repo.GamertagsByIDs(ctx, ids)
	if err != nil {
		if d.logger != nil {
			d.logger.WarnContext(ctx, "Failed to resolve player display names", slog.Int("players", len(ids)), slog.Any("error", err))
		}
		return map[uuid.UUID]string{}
	}
	return names
}

// registrationTeams collects the joined teams of a registration list.
func registrationTeams(regs []*models.Registration) []*models.Team {
	teams := make([]*models.Team, 0, len(regs))
	for _, reg := range regs {
		if reg.Team != nil {
			teams = append(teams, reg.Team)
		}
	}
	return teams
}

// submissionTeams collects the joined teams of a submission list.
func submissionTeams(subs []*models.Submission) []*models.Team {
	teams := make([]*models.Team, 0, len(subs))
	for _, sub := range subs {
		if sub.Team != nil {
			teams = append(teams, sub.Team)
		}
	}
	return teams
}

// loadTeamMembership returns the team and fails with ErrNotEligible when the
// player does not occupy any of its slots.
func loadTeamMembership(ctx context.Context, repo repositories.TeamRepository, teamID, playerID uuid.UUID) (*models.Team, error) {
	team, err := repo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if !team.HasMember(playerID) {
		return nil, ErrNotEligible
	}
	return team, nil
}

func loadTournament(ctx context.Context, repo repositories.TournamentRepository, tournamentID uuid.UUID) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}
