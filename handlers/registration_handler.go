package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/squad-tournaments/services"
	"github.com/google/uuid"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// Register godoc
// @Summary Подать заявку команды на турнир
// @Tags registrations
// @Description Любой игрок команды может подать заявку. Заявка ждёт подтверждения модератора.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Param body body object true "{\"team_id\": \"uuid\"}"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 403 {object} map[string]string "Игрок не в команде"
// @Failure 404 {object} map[string]string "Турнир или команда не найдены"
// @Failure 409 {object} map[string]string "Уже зарегистрирована / турнир заполнен"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	var input struct {
		TeamID uuid.UUID `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID == uuid.Nil {
		badRequestResponse(w, r, errors.New("team_id is required"))
		return
	}

	reg, err := h.registrationService.Register(r.Context(), input.TeamID, tournamentID, callerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMyRegistrations godoc
// @Summary Заявки моих команд
// @Tags registrations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /registrations/mine [get]
func (h *RegistrationHandler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	regs, err := h.registrationService.ListMyRegistrations(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListParticipants godoc
// @Summary Участники турнира
// @Tags registrations
// @Description Подтверждённые команды, затем ожидающие; внутри групп по времени подачи.
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/participants [get]
func (h *RegistrationHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.registrationService.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
