package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

// ModerationOperation names the elevated procedures. The set is closed: the
// moderation repository exposes no other write path.
type ModerationOperation string

const (
	OpConfirmTeam         ModerationOperation = "admin_confirm_team"
	OpConfirmRegistration ModerationOperation = "admin_confirm_registration"
	OpDenyRegistration    ModerationOperation = "admin_deny_registration"
	OpApproveSubmission   ModerationOperation = "admin_approve_submission"
	OpRejectSubmission    ModerationOperation = "admin_reject_submission"
	OpVoidSubmission      ModerationOperation = "admin_void_submission"
)

var (
	// ErrStatusMismatch means the guarded UPDATE matched no row in the expected state.
	ErrStatusMismatch = errors.New("row is not in the expected state")
	ErrTeamNotReady   = errors.New("team has unconfirmed slots")
)

// ModerationRepository runs moderator state transitions on the elevated
// connection. Every method is one atomic statement (or one transaction when
// capacity is enforced) and writes a moderation_audit row alongside the change.
type ModerationRepository interface {
	ConfirmTeam(ctx context.Context, teamID, moderatorID uuid.UUID) (*models.Team, error)
	ConfirmRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID, capacityLimited bool) (*models.Registration, error)
	DenyRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID) error
	// ApproveSubmission applies the corrected values and pending -> approved.
	ApproveSubmission(ctx context.Context, submissionID uuid.UUID, values models.SubmissionValues, moderatorID uuid.UUID) (*models.Submission, error)
	// RejectSubmission moves pending -> rejected without touching values.
	RejectSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)
	// VoidSubmission moves approved -> void.
	VoidSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)
}

type postgresModerationRepository struct {
	db *sql.DB // elevated connection
}

func NewPostgresModerationRepository(elevated *sql.DB) ModerationRepository {
	return &postgresModerationRepository{db: elevated}
}

// audited wraps a data-modifying statement named "updated" so the audit insert
// commits or fails together with it.
func audited(updateCTE, selectCols string) string {
	return `
		WITH updated AS (` + updateCTE + `),
		audit AS (
			INSERT INTO moderation_audit (operation, target_id, moderator_id)
			SELECT $2::text, updated.id, $3::uuid FROM updated
		)
		SELECT ` + selectCols + ` FROM updated`
}

func (r *postgresModerationRepository) ConfirmTeam(ctx context.Context, teamID, moderatorID uuid.UUID) (*models.Team, error) {
	query := audited(`
		UPDATE teams t SET team_confirmed = TRUE
		WHERE t.id = $1
		  AND (t.slot2_player_id IS NULL OR t.slot2_confirmed)
		  AND (t.slot3_player_id IS NULL OR t.slot3_confirmed)
		RETURNING `+teamColumns,
		`id, name, slot1_player_id, slot2_player_id, slot3_player_id,
		 slot1_confirmed, slot2_confirmed, slot3_confirmed, team_confirmed, created_at`)

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, teamID, OpConfirmTeam, moderatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
				return nil, fmt.Errorf("failed to check team: %w", err)
			}
			if !exists {
				return nil, ErrTeamNotFound
			}
			return nil, ErrTeamNotReady
		}
		return nil, fmt.Errorf("failed to confirm team: %w", err)
	}
	return team, nil
}

const registrationReturnCols = `id, tournament_id, team_id, confirmed, created_at`

func (r *postgresModerationRepository) ConfirmRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID, capacityLimited bool) (*models.Registration, error) {
	query := audited(`
		UPDATE registrations SET confirmed = TRUE
		WHERE id = $1
		RETURNING `+registrationReturnCols, registrationReturnCols)

	if !capacityLimited {
		reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, registrationID, OpConfirmRegistration, moderatorID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRegistrationNotFound
			}
			return nil, fmt.Errorf("failed to confirm registration: %w", err)
		}
		return reg, nil
	}

	var reg *models.Registration
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanRegistration(tx.QueryRowContext(ctx,
			`SELECT `+registrationReturnCols+` FROM registrations WHERE id = $1`, registrationID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("failed to load registration: %w", err)
		}
		if current.Confirmed {
			reg = current
			return nil
		}
		if err := checkCapacity(ctx, tx, current.TournamentID); err != nil {
			return err
		}
		reg, err = scanRegistration(tx.QueryRowContext(ctx, query, registrationID, OpConfirmRegistration, moderatorID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) || errors.Is(err, ErrTournamentCapacityReached) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to confirm registration: %w", err)
	}
	return reg, nil
}

func (r *postgresModerationRepository) DenyRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID) error {
	query := audited(`DELETE FROM registrations WHERE id = $1 RETURNING id`, `id`)

	var deleted uuid.UUID
	err := r.db.QueryRowContext(ctx, query, registrationID, OpDenyRegistration, moderatorID).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to deny registration: %w", err)
	}
	return nil
}

func (r *postgresModerationRepository) ApproveSubmission(ctx context.Context, submissionID uuid.UUID, v models.SubmissionValues, moderatorID uuid.UUID) (*models.Submission, error) {
	query := audited(`
		UPDATE submissions SET
			map_number    = $4,
			placement     = $5,
			player1_kills = $6,
			player2_kills = $7,
			player3_kills = $8,
			status        = 'approved',
			updated_at    = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+submissionColumns(""), submissionColumns(""))

	return r.transition(ctx, query, submissionID, OpApproveSubmission, moderatorID,
		v.MapNumber, v.Placement, v.Kills[0], v.Kills[1], v.Kills[2])
}

func (r *postgresModerationRepository) RejectSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	query := audited(`
		UPDATE submissions SET status = 'rejected', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+submissionColumns(""), submissionColumns(""))
	return r.transition(ctx, query, submissionID, OpRejectSubmission, moderatorID)
}

func (r *postgresModerationRepository) VoidSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	query := audited(`
		UPDATE submissions SET status = 'void', updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
		RETURNING `+submissionColumns(""), submissionColumns(""))
	return r.transition(ctx, query, submissionID, OpVoidSubmission, moderatorID)
}

func (r *postgresModerationRepository) transition(ctx context.Context, query string, submissionID uuid.UUID, op ModerationOperation, moderatorID uuid.UUID, extra ...interface{}) (*models.Submission, error) {
	args := append([]interface{}{submissionID, op, moderatorID}, extra...)
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusMismatch
		}
		if translated, ok := translateSubmissionError(err); ok {
			return nil, translated
		}
		return nil, fmt.Errorf("failed to run %s: %w", op, err)
	}
	return s, nil
}
