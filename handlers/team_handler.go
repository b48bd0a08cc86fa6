package handlers

import (
	"net/http"

	"github.com/Dosada05/squad-tournaments/services"
	"github.com/google/uuid"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

type createTeamRequest struct {
	Name       string     `json:"name"`
	Invitee2ID *uuid.UUID `json:"invitee2_id,omitempty"`
	Invitee3ID *uuid.UUID `json:"invitee3_id,omitempty"`
}

// CreateTeam godoc
// @Summary Создать команду
// @Tags teams
// @Description Текущий игрок становится капитаном (слот 1). Приглашённые занимают слоты 2 и 3 до подтверждения.
// @Accept json
// @Produce json
// @Param body body createTeamRequest true "Имя команды и приглашённые"
// @Success 201 {object} map[string]interface{} "Команда создана"
// @Failure 400 {object} map[string]string "Некорректный JSON"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 409 {object} map[string]string "Имя занято"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	captainID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), services.CreateTeamInput{
		CaptainID: captainID,
		Name:      req.Name,
		Invitee2:  req.Invitee2ID,
		Invitee3:  req.Invitee3ID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMyTeams godoc
// @Summary Мои команды
// @Tags teams
// @Produce json
// @Success 200 {object} map[string]interface{} "Команды, где игрок занимает любой слот"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /teams/mine [get]
func (h *TeamHandler) ListMyTeams(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	teams, err := h.teamService.ListMyTeams(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTeam godoc
// @Summary Получить команду
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректный ID"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AcceptInvite godoc
// @Summary Принять приглашение в команду
// @Tags teams
// @Description Подтверждает слот текущего игрока. Команда остаётся неподтверждённой до решения модератора.
// @Produce json
// @Param teamID path string true "Team ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Игрок не занимает неподтверждённый слот"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/accept [post]
func (h *TeamHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.AcceptInvite(r.Context(), teamID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
