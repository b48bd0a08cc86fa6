package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/Dosada05/squad-tournaments/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stubLeaderboardService struct {
	services.LeaderboardService

	includeEmpty bool
	calls        []string

	entries     []models.LeaderboardEntry
	err         error
	snapshot    []models.LeaderboardEntry
	snapshotErr error
}

func (s *stubLeaderboardService) ComputeLeaderboard(_ context.Context, _ uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error) {
	s.includeEmpty = includeEmpty
	s.calls = append(s.calls, "live")
	return s.entries, s.err
}

func (s *stubLeaderboardService) SnapshotLeaderboard(_ context.Context, _ uuid.UUID, includeEmpty bool) ([]models.LeaderboardEntry, error) {
	s.includeEmpty = includeEmpty
	s.calls = append(s.calls, "snapshot")
	return s.snapshot, s.snapshotErr
}

func TestGetLeaderboard(t *testing.T) {
	tournamentID := uuid.New()
	entries := []models.LeaderboardEntry{
		{Rank: 1, TeamID: uuid.New(), TeamName: "Alpha", MapsPlayed: 2, TotalKills: 9, TotalPoints: 36},
		{Rank: 2, TeamID: uuid.New(), TeamName: "Bravo", MapsPlayed: 1, TotalKills: 3, TotalPoints: 13},
	}
	cached := []models.LeaderboardEntry{
		{Rank: 1, TeamID: uuid.New(), TeamName: "Cached", MapsPlayed: 1, TotalKills: 1, TotalPoints: 16},
	}
	transient := fmt.Errorf("failed to load approved submissions: %w", repositories.ErrTransient)

	tests := []struct {
		name             string
		query            string
		err              error
		snapshotErr      error
		wantStatus       int
		wantIncludeEmpty bool
		wantCalls        []string
		wantSource       string
		wantTeams        []string
	}{
		{name: "default", wantStatus: http.StatusOK, wantCalls: []string{"live"}, wantSource: "live", wantTeams: []string{"Alpha", "Bravo"}},
		{name: "include empty", query: "?include_empty=true", wantStatus: http.StatusOK, wantIncludeEmpty: true,
			wantCalls: []string{"live"}, wantSource: "live", wantTeams: []string{"Alpha", "Bravo"}},
		{name: "unparsable flag is false", query: "?include_empty=maybe", wantStatus: http.StatusOK,
			wantCalls: []string{"live"}, wantSource: "live", wantTeams: []string{"Alpha", "Bravo"}},
		{name: "explicit snapshot", query: "?source=snapshot&include_empty=1", wantStatus: http.StatusOK, wantIncludeEmpty: true,
			wantCalls: []string{"snapshot"}, wantSource: "snapshot", wantTeams: []string{"Cached"}},
		{name: "transient live read falls back to snapshot", err: transient, wantStatus: http.StatusOK,
			wantCalls: []string{"live", "snapshot"}, wantSource: "snapshot", wantTeams: []string{"Cached"}},
		{name: "snapshot fallback fails too", err: transient, snapshotErr: transient, wantStatus: http.StatusInternalServerError,
			wantCalls: []string{"live", "snapshot"}},
		{name: "unknown tournament does not fall back", err: services.ErrTournamentNotFound, wantStatus: http.StatusNotFound,
			wantCalls: []string{"live"}},
		{name: "unknown source", query: "?source=cache", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubLeaderboardService{entries: entries, err: tt.err, snapshot: cached, snapshotErr: tt.snapshotErr}
			r := chi.NewRouter()
			r.Get("/tournaments/{tournamentID}/leaderboard", NewLeaderboardHandler(svc).GetLeaderboard)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tournaments/"+tournamentID.String()+"/leaderboard"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if fmt.Sprint(svc.calls) != fmt.Sprint(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", svc.calls, tt.wantCalls)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if svc.includeEmpty != tt.wantIncludeEmpty {
				t.Fatalf("includeEmpty = %v", svc.includeEmpty)
			}

			body := decodeBody(t, rec)
			var source string
			if err := json.Unmarshal(body["source"], &source); err != nil {
				t.Fatal(err)
			}
			if source != tt.wantSource {
				t.Fatalf("source = %q, want %q", source, tt.wantSource)
			}
			var got []models.LeaderboardEntry
			if err := json.Unmarshal(body["leaderboard"], &got); err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.wantTeams) {
				t.Fatalf("leaderboard = %+v", got)
			}
			for i, name := range tt.wantTeams {
				if got[i].TeamName != name {
					t.Fatalf("entry %d = %+v, want %s", i, got[i], name)
				}
			}
		})
	}
}
