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
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: team already registered for this tournament")
	ErrRegistrationTeamInvalid       = errors.New("registration team conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
	ErrTournamentCapacityReached     = errors.New("tournament capacity reached")
)

const registrationUniqueConstraint = "registrations_tournament_id_team_id_key"

type RegistrationRepository interface {
	// Create inserts a pending registration. With capacityLimited the tournament row
	// is locked and confirmed registrations are counted in the same transaction.
	Create(ctx context.Context, reg *models.Registration, capacityLimited bool) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	IsConfirmedRegistrant(ctx context.Context, tournamentID, teamID uuid.UUID) (bool, error)
	// ListByTournament orders confirmed first, then by created_at ascending.
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]*models.Registration, error)
	ListUnconfirmed(ctx context.Context) ([]*models.Registration, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `r.id, r.tournament_id, r.team_id, r.confirmed, r.created_at`

func translateRegistrationError(err error) (error, bool) {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case pgUniqueViolation:
			if pqErr.Constraint == registrationUniqueConstraint {
				return ErrRegistrationConflict, true
			}
		case pgForeignKeyViolation:
			switch pqErr.Constraint {
			case "registrations_team_id_fkey":
				return ErrRegistrationTeamInvalid, true
			case "registrations_tournament_id_fkey":
				return ErrRegistrationTournamentInvalid, true
			}
		}
	}
	return err, false
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration, capacityLimited bool) error {
	insert := func(exec SQLExecutor) error {
		query := `
			INSERT INTO registrations (tournament_id, team_id, confirmed)
			VALUES ($1, $2, FALSE)
			RETURNING id, confirmed, created_at`
		return exec.QueryRowContext(ctx, query, reg.TournamentID, reg.TeamID).
			Scan(&reg.ID, &reg.Confirmed, &reg.CreatedAt)
	}

	var err error
	if capacityLimited {
		err = withTx(ctx, r.db, func(tx *sql.Tx) error {
			if err := checkCapacity(ctx, tx, reg.TournamentID); err != nil {
				return err
			}
			return insert(tx)
		})
	} else {
		err = insert(r.db)
	}

	if err != nil {
		if errors.Is(err, ErrTournamentCapacityReached) || errors.Is(err, ErrTournamentNotFound) {
			return err
		}
		if translated, ok := translateRegistrationError(err); ok {
			return translated
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

// checkCapacity locks the tournament row so concurrent registrations and
// confirmations for the same tournament serialize behind it.
func checkCapacity(ctx context.Context, tx *sql.Tx, tournamentID uuid.UUID) error {
	var teamsTotal sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT teams_total FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID).Scan(&teamsTotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to lock tournament: %w", err)
	}
	if !teamsTotal.Valid {
		return nil
	}

	var confirmed int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE tournament_id = $1 AND confirmed`, tournamentID).Scan(&confirmed)
	if err != nil {
		return fmt.Errorf("failed to count confirmed registrations: %w", err)
	}
	if confirmed >= teamsTotal.Int64 {
		return ErrTournamentCapacityReached
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + teamColumns + `
		FROM registrations r
		LEFT JOIN teams t ON t.id = r.team_id
		WHERE r.id = $1`

	reg, err := scanRegistrationWithTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", classifyTransient(err))
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) IsConfirmedRegistrant(ctx context.Context, tournamentID, teamID uuid.UUID) (bool, error) {
	var confirmed bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE tournament_id = $1 AND team_id = $2 AND confirmed
		)`, tournamentID, teamID).Scan(&confirmed)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", classifyTransient(err))
	}
	return confirmed, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + teamColumns + `
		FROM registrations r
		LEFT JOIN teams t ON t.id = r.team_id
		WHERE r.tournament_id = $1
		ORDER BY r.confirmed DESC, r.created_at ASC, r.id ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresRegistrationRepository) ListUnconfirmed(ctx context.Context) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + teamColumns + `
		FROM registrations r
		LEFT JOIN teams t ON t.id = r.team_id
		WHERE NOT r.confirmed
		ORDER BY r.created_at ASC, r.id ASC`
	return r.list(ctx, query)
}

func (r *postgresRegistrationRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `, ` + teamColumns + `
		FROM registrations r
		JOIN teams t ON t.id = r.team_id
		WHERE t.slot1_player_id = $1 OR t.slot2_player_id = $1 OR t.slot3_player_id = $1
		ORDER BY r.created_at DESC, r.id ASC`
	return r.list(ctx, query, playerID)
}

func (r *postgresRegistrationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", classifyTransient(err))
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistrationWithTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		regs = append(regs, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return regs, nil
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	if err := row.Scan(&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.Confirmed, &reg.CreatedAt); err != nil {
		return nil, err
	}
	return reg, nil
}

func scanRegistrationWithTeam(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	var team joinedTeam
	dest := append([]interface{}{&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.Confirmed, &reg.CreatedAt}, team.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	reg.Team = team.coerce()
	return reg, nil
}
