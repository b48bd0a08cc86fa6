package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

var ErrTournamentNotFound = errors.New("tournament not found")

// TournamentRepository is read-only: tournament metadata is maintained elsewhere.
type TournamentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, status, teams_total, max_maps, created_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var teamsTotal, maxMaps sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &t.Status, &teamsTotal, &maxMaps, &t.CreatedAt); err != nil {
		return nil, err
	}
	if teamsTotal.Valid {
		v := int(teamsTotal.Int64)
		t.TeamsTotal = &v
	}
	if maxMaps.Valid {
		v := int(maxMaps.Int64)
		t.MaxMaps = &v
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", classifyTransient(err))
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", classifyTransient(err))
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}
