package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/services"
	"github.com/google/uuid"
)

// ModerationHandler exposes the elevated operations. Routes must sit behind
// middleware.RequireModerator.
type ModerationHandler struct {
	teamService         services.TeamService
	registrationService services.RegistrationService
	submissionService   services.SubmissionService
}

func NewModerationHandler(ts services.TeamService, rs services.RegistrationService, ss services.SubmissionService) *ModerationHandler {
	return &ModerationHandler{
		teamService:         ts,
		registrationService: rs,
		submissionService:   ss,
	}
}

// ConfirmTeam godoc
// @Summary Подтвердить команду
// @Tags moderation
// @Description Все занятые слоты должны быть приняты игроками.
// @Produce json
// @Param teamID path string true "Team ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Failure 409 {object} map[string]string "Есть неподтверждённые слоты"
// @Security BearerAuth
// @Router /admin/teams/{teamID}/confirm [post]
func (h *ModerationHandler) ConfirmTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	moderatorID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.ModeratorConfirmTeam(r.Context(), teamID, moderatorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPendingRegistrations godoc
// @Summary Очередь заявок
// @Tags moderation
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/registrations/pending [get]
func (h *ModerationHandler) ListPendingRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrationService.ListPendingRegistrations(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmRegistration godoc
// @Summary Подтвердить заявку
// @Tags moderation
// @Produce json
// @Param registrationID path string true "Registration ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Failure 409 {object} map[string]string "Турнир заполнен"
// @Security BearerAuth
// @Router /admin/registrations/{registrationID}/confirm [post]
func (h *ModerationHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	moderatorID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	reg, err := h.registrationService.ModeratorConfirm(r.Context(), registrationID, moderatorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DenyRegistration godoc
// @Summary Отклонить заявку
// @Tags moderation
// @Description Заявка удаляется; команда может подать её снова.
// @Param registrationID path string true "Registration ID (uuid)"
// @Success 204 "Заявка удалена"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /admin/registrations/{registrationID} [delete]
func (h *ModerationHandler) DenyRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	moderatorID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	if err := h.registrationService.ModeratorDeny(r.Context(), registrationID, moderatorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPendingSubmissions godoc
// @Summary Очередь модерации результатов
// @Tags moderation
// @Description Сначала новые. Необязательный фильтр tournament_id.
// @Produce json
// @Param tournament_id query string false "Tournament ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/submissions/pending [get]
func (h *ModerationHandler) ListPendingSubmissions(w http.ResponseWriter, r *http.Request) {
	var tournamentID *uuid.UUID
	if raw := r.URL.Query().Get("tournament_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid tournament_id format: %q", raw))
			return
		}
		tournamentID = &id
	}

	subs, err := h.submissionService.ListPending(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": subs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveSubmission godoc
// @Summary Одобрить результат
// @Tags moderation
// @Description Необязательное тело с исправлениями (map_number, placement, kills) применяется вместе с одобрением.
// @Accept json
// @Produce json
// @Param submissionID path string true "Submission ID (uuid)"
// @Param body body services.Correction false "Исправления модератора"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Результат не найден"
// @Failure 409 {object} map[string]string "Результат не в статусе pending"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /admin/submissions/{submissionID}/approve [post]
func (h *ModerationHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, err := getUUIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	moderatorID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	// Пустое тело (в том числе chunked без данных) означает одобрение без правок.
	correction := &services.Correction{}
	if err := readJSON(w, r, correction); err != nil {
		if !errors.Is(err, errEmptyBody) {
			badRequestResponse(w, r, err)
			return
		}
		correction = nil
	}

	sub, err := h.submissionService.ModeratorApprove(r.Context(), submissionID, correction, moderatorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": sub}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RejectSubmission godoc
// @Summary Отклонить результат
// @Tags moderation
// @Produce json
// @Param submissionID path string true "Submission ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Результат не в статусе pending"
// @Security BearerAuth
// @Router /admin/submissions/{submissionID}/reject [post]
func (h *ModerationHandler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.submissionService.ModeratorReject)
}

// VoidSubmission godoc
// @Summary Аннулировать одобренный результат
// @Tags moderation
// @Produce json
// @Param submissionID path string true "Submission ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Результат не одобрен"
// @Security BearerAuth
// @Router /admin/submissions/{submissionID}/void [post]
func (h *ModerationHandler) VoidSubmission(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.submissionService.ModeratorVoid)
}

func (h *ModerationHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)) {
	submissionID, err := getUUIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	moderatorID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	sub, err := apply(r.Context(), submissionID, moderatorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": sub}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ScoreboardURL godoc
// @Summary Ссылка на скриншот результата
// @Tags moderation
// @Description Временная подписанная ссылка.
// @Produce json
// @Param submissionID path string true "Submission ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Результат не найден"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /admin/submissions/{submissionID}/scoreboard [get]
func (h *ModerationHandler) ScoreboardURL(w http.ResponseWriter, r *http.Request) {
	submissionID, err := getUUIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	url, err := h.submissionService.ScoreboardURL(r.Context(), submissionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"url": url}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
