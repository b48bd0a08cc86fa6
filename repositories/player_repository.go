package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PlayerRepository reads the denormalized profile table owned by the auth subsystem.
type PlayerRepository interface {
	// GamertagsByIDs returns trimmed, non-empty gamertags keyed by player id.
	// Players without a profile or with a blank gamertag are absent from the map.
	GamertagsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) GamertagsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	result := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, gamertag FROM players WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to look up gamertags: %w", classifyTransient(err))
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var tag sql.NullString
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		if name := strings.TrimSpace(tag.String); name != "" {
			result[id] = name
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return result, nil
}
