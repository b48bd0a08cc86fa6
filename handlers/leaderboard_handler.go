package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/services"
)

const (
	leaderboardSourceLive     = "live"
	leaderboardSourceSnapshot = "snapshot"
)

var errInvalidLeaderboardSource = errors.New("source must be live or snapshot")

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// GetLeaderboard godoc
// @Summary Таблица лидеров турнира
// @Tags leaderboard
// @Description По умолчанию считается заново из одобренных результатов. source=snapshot отдаёт последний сохранённый снимок;
// @Description он же используется, если свежий расчёт упал на временной ошибке хранилища.
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Param include_empty query bool false "Показывать подтверждённые команды без результатов"
// @Param source query string false "live (по умолчанию) или snapshot"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неизвестный source"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	includeEmpty, _ := strconv.ParseBool(r.URL.Query().Get("include_empty"))

	source := r.URL.Query().Get("source")
	var entries []models.LeaderboardEntry
	switch source {
	case "", leaderboardSourceLive:
		source = leaderboardSourceLive
		entries, err = h.leaderboardService.ComputeLeaderboard(r.Context(), tournamentID, includeEmpty)
		if err != nil && services.IsRetryable(err) {
			slog.WarnContext(r.Context(), "Live leaderboard unavailable, serving snapshot",
				slog.String("tournament_id", tournamentID.String()),
				slog.Any("error", err))
			source = leaderboardSourceSnapshot
			entries, err = h.leaderboardService.SnapshotLeaderboard(r.Context(), tournamentID, includeEmpty)
		}
	case leaderboardSourceSnapshot:
		entries, err = h.leaderboardService.SnapshotLeaderboard(r.Context(), tournamentID, includeEmpty)
	default:
		badRequestResponse(w, r, errInvalidLeaderboardSource)
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries, "source": source}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
