package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const snapshotParallelism = 4

type LeaderboardService interface {
	// ComputeLeaderboard reads the current approved submissions and aggregates them.
	// With includeEmpty, confirmed teams without approved results are listed too.
	ComputeLeaderboard(ctx context.Context, tournamentID uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error)
	// SnapshotLeaderboard serves the last stored snapshot. It may lag behind
	// moderation by up to one refresh interval.
	SnapshotLeaderboard(ctx context.Context, tournamentID uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error)
	// RefreshSnapshots rewrites leaderboard_team_totals for every ongoing tournament.
	RefreshSnapshots(ctx context.Context) error
}

type leaderboardService struct {
	submissionRepo   repositories.SubmissionRepository
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	snapshotRepo     repositories.LeaderboardSnapshotRepository
	rules            ScoringRules
	logger           *slog.Logger
}

func NewLeaderboardService(
	submissionRepo repositories.SubmissionRepository,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	snapshotRepo repositories.LeaderboardSnapshotRepository,
	rules ScoringRules,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		submissionRepo:   submissionRepo,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		snapshotRepo:     snapshotRepo,
		rules:            rules,
		logger:           logger,
	}
}

func (s *leaderboardService) ComputeLeaderboard(ctx context.Context, tournamentID uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error) {
	var (
		approved []*models.Submission
		regs     []*models.Registration
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Турнир должен существовать
	g.Go(func() error {
		_, err := loadTournament(gCtx, s.tournamentRepo, tournamentID)
		return err
	})

	// 2. Одобренные результаты подтверждённых команд
	g.Go(func() error {
		subs, err := s.submissionRepo.ListApproved(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load approved submissions: %w", err)
		}
		approved = subs
		return nil
	})

	// 3. Подтверждённые команды без результатов (по запросу)
	if includeEmpty {
		g.Go(func() error {
			list, err := s.registrationRepo.ListByTournament(gCtx, tournamentID)
			if err != nil {
				return fmt.Errorf("failed to load registrations: %w", err)
			}
			regs = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := Aggregate(tournamentID, approved, s.rules)
	if includeEmpty {
		entries = appendEmptyTeams(entries, tournamentID, regs)
	}
	return entries, nil
}

func appendEmptyTeams(entries []models.LeaderboardEntry, tournamentID uuid.UUID, regs []*models.Registration) []models.LeaderboardEntry {
	present := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		present[e.TeamID] = struct{}{}
	}
	added := false
	for _, reg := range regs {
		if !reg.Confirmed {
			continue
		}
		if _, ok := present[reg.TeamID]; ok {
			continue
		}
		entry := models.LeaderboardEntry{TournamentID: tournamentID, TeamID: reg.TeamID}
		if reg.Team != nil {
			entry.TeamName = reg.Team.Name
		}
		entries = append(entries, entry)
		present[reg.TeamID] = struct{}{}
		added = true
	}
	if added {
		rankEntries(entries)
	}
	return entries
}

func (s *leaderboardService) SnapshotLeaderboard(ctx context.Context, tournamentID uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error) {
	if _, err := loadTournament(ctx, s.tournamentRepo, tournamentID); err != nil {
		return nil, err
	}
	stored, err := s.snapshotRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard snapshot: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(stored))
	for _, e := range stored {
		if !includeEmpty && e.MapsPlayed == 0 {
			continue
		}
		entries = append(entries, e)
	}
	// Ранги пересчитываются: в таблице они не хранятся, а равные итоги делят место.
	rankEntries(entries)
	return entries, nil
}

func (s *leaderboardService) RefreshSnapshots(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListByStatus(ctx, models.TournamentStatusOngoing)
	if err != nil {
		return fmt.Errorf("failed to list ongoing tournaments: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotParallelism)

	for _, t := range tournaments {
		tournamentID := t.ID
		g.Go(func() error {
			entries, err := s.ComputeLeaderboard(gCtx, tournamentID, true)
			if err != nil {
				return fmt.Errorf("failed to compute leaderboard for tournament %s: %w", tournamentID, err)
			}
			if err := s.snapshotRepo.Replace(gCtx, tournamentID, entries); err != nil {
				return fmt.Errorf("failed to store leaderboard snapshot for tournament %s: %w", tournamentID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Leaderboard snapshots refreshed", slog.Int("tournaments", len(tournaments)))
	return nil
}
