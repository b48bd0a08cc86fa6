package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

var (
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrSubmissionConflict     = errors.New("submission conflict: map already has a submission for this team")
	ErrSubmissionVoided       = errors.New("submission for this map was voided")
	ErrNotConfirmedRegistrant = errors.New("team is not a confirmed registrant of this tournament")
	ErrSubmissionInvalid      = errors.New("submission violates a value constraint")
)

const submissionUniqueConstraint = "submissions_tournament_id_team_id_map_number_key"

type SubmissionRepository interface {
	// Upsert writes the (tournament, team, map) row in a single statement and
	// resets its status to pending. The statement only applies when the team is a
	// confirmed registrant and the existing row, if any, is not void.
	Upsert(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetByKey(ctx context.Context, tournamentID, teamID uuid.UUID, mapNumber int) (*models.Submission, error)
	// ListPending returns the moderation queue, newest first. A nil tournamentID lists all.
	ListPending(ctx context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error)
	ListByTeam(ctx context.Context, tournamentID, teamID uuid.UUID) ([]*models.Submission, error)
	// ListApproved returns approved submissions of confirmed registrants only.
	ListApproved(ctx context.Context, tournamentID uuid.UUID) ([]*models.Submission, error)
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func submissionColumns(prefix string) string {
	cols := []string{
		"id", "tournament_id", "team_id", "map_number", "placement",
		"player1_kills", "player2_kills", "player3_kills",
		"scoreboard_image_ref", "status", "created_at", "updated_at",
	}
	if prefix != "" {
		for i, c := range cols {
			cols[i] = prefix + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

func submissionDest(s *models.Submission, placement *sql.NullInt64) []interface{} {
	return []interface{}{
		&s.ID, &s.TournamentID, &s.TeamID, &s.MapNumber, placement,
		&s.Kills[0], &s.Kills[1], &s.Kills[2],
		&s.ImageRef, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	}
}

func applyPlacement(s *models.Submission, placement sql.NullInt64) {
	if placement.Valid {
		v := int(placement.Int64)
		s.Placement = &v
	} else {
		s.Placement = nil
	}
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	s := &models.Submission{}
	var placement sql.NullInt64
	if err := row.Scan(submissionDest(s, &placement)...); err != nil {
		return nil, err
	}
	applyPlacement(s, placement)
	return s, nil
}

func scanSubmissionWithTeam(row rowScanner) (*models.Submission, error) {
	s := &models.Submission{}
	var placement sql.NullInt64
	var team joinedTeam
	if err := row.Scan(append(submissionDest(s, &placement), team.dest()...)...); err != nil {
		return nil, err
	}
	applyPlacement(s, placement)
	s.Team = team.coerce()
	return s, nil
}

func nullPlacement(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func translateSubmissionError(err error) (error, bool) {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case pgUniqueViolation:
			if pqErr.Constraint == submissionUniqueConstraint {
				return ErrSubmissionConflict, true
			}
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrSubmissionInvalid, pqErr.Constraint), true
		case pgForeignKeyViolation:
			return ErrNotConfirmedRegistrant, true
		}
	}
	return err, false
}

func (r *postgresSubmissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (tournament_id, team_id, map_number, placement,
		                         player1_kills, player2_kills, player3_kills,
		                         scoreboard_image_ref, status)
		SELECT $1::uuid, $2::uuid, $3::int, $4::int, $5::int, $6::int, $7::int, $8::text, 'pending'
		WHERE EXISTS (
			SELECT 1 FROM registrations r
			WHERE r.tournament_id = $1::uuid AND r.team_id = $2::uuid AND r.confirmed
		)
		ON CONFLICT ON CONSTRAINT ` + submissionUniqueConstraint + ` DO UPDATE SET
			placement            = EXCLUDED.placement,
			player1_kills        = EXCLUDED.player1_kills,
			player2_kills        = EXCLUDED.player2_kills,
			player3_kills        = EXCLUDED.player3_kills,
			scoreboard_image_ref = EXCLUDED.scoreboard_image_ref,
			status               = 'pending',
			updated_at           = NOW()
		WHERE submissions.status <> 'void'
		RETURNING ` + submissionColumns("")

	stored, err := scanSubmission(r.db.QueryRowContext(ctx, query,
		s.TournamentID, s.TeamID, s.MapNumber, nullPlacement(s.Placement),
		s.Kills[0], s.Kills[1], s.Kills[2], s.ImageRef,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.explainSkippedUpsert(ctx, s)
		}
		if translated, ok := translateSubmissionError(err); ok {
			return translated
		}
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	*s = *stored
	return nil
}

// explainSkippedUpsert runs after the upsert wrote nothing and reports why.
func (r *postgresSubmissionRepository) explainSkippedUpsert(ctx context.Context, s *models.Submission) error {
	var registered bool
	var status sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM registrations WHERE tournament_id = $1 AND team_id = $2 AND confirmed),
			(SELECT status FROM submissions WHERE tournament_id = $1 AND team_id = $2 AND map_number = $3)`,
		s.TournamentID, s.TeamID, s.MapNumber,
	).Scan(&registered, &status)
	if err != nil {
		return fmt.Errorf("failed to inspect skipped submission: %w", err)
	}
	if !registered {
		return ErrNotConfirmedRegistrant
	}
	if status.Valid && models.SubmissionStatus(status.String) == models.SubmissionVoid {
		return ErrSubmissionVoided
	}
	// Регистрацию подтвердили между upsert и этой проверкой. Ничего не записано,
	// повторная отправка пройдёт.
	return fmt.Errorf("%w: registration was confirmed during the write", ErrSubmissionConflict)
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns("s") + ` FROM submissions s WHERE s.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresSubmissionRepository) GetByKey(ctx context.Context, tournamentID, teamID uuid.UUID, mapNumber int) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns("s") + `
		FROM submissions s
		WHERE s.tournament_id = $1 AND s.team_id = $2 AND s.map_number = $3`
	return r.findOne(ctx, query, tournamentID, teamID, mapNumber)
}

func (r *postgresSubmissionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Submission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to find submission: %w", classifyTransient(err))
	}
	return s, nil
}

func (r *postgresSubmissionRepository) ListPending(ctx context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error) {
	var qb strings.Builder
	args := []interface{}{models.SubmissionPending}

	qb.WriteString(`SELECT ` + submissionColumns("s") + `, ` + teamColumns + `
		FROM submissions s
		LEFT JOIN teams t ON t.id = s.team_id
		WHERE s.status = $1`)
	if tournamentID != nil {
		qb.WriteString(" AND s.tournament_id = $2")
		args = append(args, *tournamentID)
	}
	qb.WriteString(" ORDER BY s.created_at DESC, s.id ASC")

	return r.list(ctx, qb.String(), true, args...)
}

func (r *postgresSubmissionRepository) ListByTeam(ctx context.Context, tournamentID, teamID uuid.UUID) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns("s") + `
		FROM submissions s
		WHERE s.tournament_id = $1 AND s.team_id = $2
		ORDER BY s.map_number ASC`
	return r.list(ctx, query, false, tournamentID, teamID)
}

func (r *postgresSubmissionRepository) ListApproved(ctx context.Context, tournamentID uuid.UUID) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns("s") + `, ` + teamColumns + `
		FROM submissions s
		JOIN registrations r ON r.tournament_id = s.tournament_id AND r.team_id = s.team_id AND r.confirmed
		LEFT JOIN teams t ON t.id = s.team_id
		WHERE s.tournament_id = $1 AND s.status = $2
		ORDER BY s.team_id ASC, s.map_number ASC`
	return r.list(ctx, query, true, tournamentID, models.SubmissionApproved)
}

func (r *postgresSubmissionRepository) list(ctx context.Context, query string, withTeam bool, args ...interface{}) ([]*models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", classifyTransient(err))
	}
	defer rows.Close()

	subs := make([]*models.Submission, 0)
	for rows.Next() {
		var s *models.Submission
		var scanErr error
		if withTeam {
			s, scanErr = scanSubmissionWithTeam(rows)
		} else {
			s, scanErr = scanSubmission(rows)
		}
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", scanErr)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return subs, nil
}
