package repositories

import (
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var fixedTime = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// sqlLike matches a statement containing the given fragments in order.
// Whitespace inside fragments is compared after collapsing.
func sqlLike(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(strings.Join(strings.Fields(f), " "))
	}
	return strings.Join(quoted, ".*")
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var submissionCols = []string{
	"id", "tournament_id", "team_id", "map_number", "placement",
	"player1_kills", "player2_kills", "player3_kills",
	"scoreboard_image_ref", "status", "created_at", "updated_at",
}

func submissionRow(id, tournamentID, teamID uuid.UUID, mapNumber int, placement interface{}, status string) *sqlmock.Rows {
	return sqlmock.NewRows(submissionCols).AddRow(
		id.String(), tournamentID.String(), teamID.String(), mapNumber, placement,
		3, 2, 1, "scoreboards/key.png", status, fixedTime, fixedTime,
	)
}

var teamCols = []string{
	"id", "name", "slot1_player_id", "slot2_player_id", "slot3_player_id",
	"slot1_confirmed", "slot2_confirmed", "slot3_confirmed", "team_confirmed", "created_at",
}
