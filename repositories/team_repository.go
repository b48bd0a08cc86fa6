package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamNameConflict     = errors.New("team name conflict")
	ErrTeamInvalidRoster    = errors.New("team roster violates slot constraints")
	ErrTeamSlotNotAvailable = errors.New("player has no unconfirmed slot on this team")
)

// TeamRepository определяет интерфейс для работы с командами.
type TeamRepository interface {
	// Create вставляет команду; капитан в слоте 1 подтверждён сразу.
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	// ListByPlayer возвращает команды, где игрок занимает любой слот, по имени.
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Team, error)
	// ConfirmSlot подтверждает неподтверждённый слот игрока одним UPDATE.
	// Возвращает ErrTeamSlotNotAvailable, если такого слота нет.
	ConfirmSlot(ctx context.Context, teamID, playerID uuid.UUID) (*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, slot1_player_id, slot2_player_id, slot3_player_id,
		                   slot1_confirmed, slot2_confirmed, slot3_confirmed, team_confirmed)
		VALUES ($1, $2, $3, $4, TRUE, FALSE, FALSE, FALSE)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.Name,
		nullUUID(team.Slots[0].PlayerID),
		nullUUID(team.Slots[1].PlayerID),
		nullUUID(team.Slots[2].PlayerID),
	).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case pgUniqueViolation:
				if pqErr.Constraint == "teams_name_key" {
					return ErrTeamNameConflict
				}
			case pgCheckViolation:
				return fmt.Errorf("%w: %s", ErrTeamInvalidRoster, pqErr.Constraint)
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	team.Slots[0].Confirmed = true
	team.Slots[1].Confirmed = false
	team.Slots[2].Confirmed = false
	team.TeamConfirmed = false
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", classifyTransient(err))
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		WHERE t.slot1_player_id = $1 OR t.slot2_player_id = $1 OR t.slot3_player_id = $1
		ORDER BY t.name ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by player: %w", classifyTransient(err))
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) ConfirmSlot(ctx context.Context, teamID, playerID uuid.UUID) (*models.Team, error) {
	query := `
		UPDATE teams t SET
			slot2_confirmed = CASE WHEN t.slot2_player_id = $2 THEN TRUE ELSE t.slot2_confirmed END,
			slot3_confirmed = CASE WHEN t.slot3_player_id = $2 THEN TRUE ELSE t.slot3_confirmed END
		WHERE t.id = $1
		  AND ((t.slot2_player_id = $2 AND NOT t.slot2_confirmed)
		    OR (t.slot3_player_id = $2 AND NOT t.slot3_confirmed))
		RETURNING ` + teamColumns

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, teamID, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing team from an ineligible player.
			if _, getErr := r.GetByID(ctx, teamID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrTeamSlotNotAvailable
		}
		return nil, fmt.Errorf("failed to confirm team slot: %w", err)
	}
	return team, nil
}
