package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

// LeaderboardSnapshotRepository maintains leaderboard_team_totals, a cache of
// computed leaderboards. It is never read by the aggregator itself.
type LeaderboardSnapshotRepository interface {
	// Replace rewrites all rows of one tournament in a single transaction.
	Replace(ctx context.Context, tournamentID uuid.UUID, entries []models.LeaderboardEntry) error
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.LeaderboardEntry, error)
}

type postgresLeaderboardSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardSnapshotRepository(db *sql.DB) LeaderboardSnapshotRepository {
	return &postgresLeaderboardSnapshotRepository{db: db}
}

func (r *postgresLeaderboardSnapshotRepository) Replace(ctx context.Context, tournamentID uuid.UUID, entries []models.LeaderboardEntry) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_team_totals WHERE tournament_id = $1`, tournamentID); err != nil {
			return fmt.Errorf("failed to clear leaderboard snapshot: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO leaderboard_team_totals
			    (tournament_id, team_id, maps_played, total_kills, total_points, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, e := range entries {
			updatedAt := e.UpdatedAt
			if updatedAt.IsZero() {
				updatedAt = now
			}
			if _, err := stmt.ExecContext(ctx, tournamentID, e.TeamID, e.MapsPlayed, e.TotalKills, e.TotalPoints, updatedAt); err != nil {
				return fmt.Errorf("failed to insert snapshot row for team %s: %w", e.TeamID, err)
			}
		}
		return nil
	})
}

func (r *postgresLeaderboardSnapshotRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT l.tournament_id, l.team_id, COALESCE(t.name, ''), l.maps_played, l.total_kills, l.total_points, l.updated_at
		FROM leaderboard_team_totals l
		LEFT JOIN teams t ON t.id = l.team_id
		WHERE l.tournament_id = $1
		ORDER BY l.total_points DESC, l.total_kills DESC, l.team_id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard snapshot: %w", classifyTransient(err))
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.TournamentID, &e.TeamID, &e.TeamName, &e.MapsPlayed, &e.TotalKills, &e.TotalPoints, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return entries, nil
}
