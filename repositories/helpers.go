package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Postgres error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// ErrTransient marks connection-level failures; only reads may be retried on it.
var ErrTransient = errors.New("transient storage failure")

// pqError unwraps err into a *pq.Error, if it is one.
func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// classifyTransient wraps connection-class errors (SQLSTATE 08xxx, 57P0x, broken pipes)
// with ErrTransient so callers can decide about retrying reads.
func classifyTransient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	if pqErr, ok := pqError(err); ok {
		class := pqErr.Code.Class()
		if class == "08" || pqErr.Code == "57P01" || pqErr.Code == "57P03" || pqErr.Code == "40001" {
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
	}
	return err
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classifyTransient(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

const teamColumns = `t.id, t.name,
	t.slot1_player_id, t.slot2_player_id, t.slot3_player_id,
	t.slot1_confirmed, t.slot2_confirmed, t.slot3_confirmed,
	t.team_confirmed, t.created_at`

// joinedTeam receives LEFT JOINed team columns, which are all NULL when the
// relation is absent. coerce is the only place that decides between "no team"
// and "one team"; nothing downstream inspects the raw columns.
type joinedTeam struct {
	ID            uuid.NullUUID
	Name          sql.NullString
	Players       [models.TeamSize]uuid.NullUUID
	Confirmed     [models.TeamSize]sql.NullBool
	TeamConfirmed sql.NullBool
	CreatedAt     sql.NullTime
}

func (j *joinedTeam) dest() []interface{} {
	return []interface{}{
		&j.ID, &j.Name,
		&j.Players[0], &j.Players[1], &j.Players[2],
		&j.Confirmed[0], &j.Confirmed[1], &j.Confirmed[2],
		&j.TeamConfirmed, &j.CreatedAt,
	}
}

func (j *joinedTeam) coerce() *models.Team {
	if !j.ID.Valid {
		return nil
	}
	team := &models.Team{
		ID:            j.ID.UUID,
		Name:          j.Name.String,
		TeamConfirmed: j.TeamConfirmed.Bool,
		CreatedAt:     j.CreatedAt.Time,
	}
	for i := range team.Slots {
		if j.Players[i].Valid {
			id := j.Players[i].UUID
			team.Slots[i].PlayerID = &id
		}
		team.Slots[i].Confirmed = j.Confirmed[i].Bool
	}
	return team
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var j joinedTeam
	if err := row.Scan(j.dest()...); err != nil {
		return nil, err
	}
	team := j.coerce()
	if team == nil {
		return nil, sql.ErrNoRows
	}
	return team, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
