package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/services"
	"github.com/go-chi/chi/v5"
)

const maxScoreboardFormBytes = 11 << 20

type SubmissionHandler struct {
	submissionService services.SubmissionService
}

func NewSubmissionHandler(ss services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

type submitRequest struct {
	Placement        int                  `json:"placement"`
	Kills            [models.TeamSize]int `json:"kills"`
	ImageRef         string               `json:"scoreboard_image_ref"`
	ConfirmOverwrite bool                 `json:"confirm_overwrite"`
}

func getMapNumberFromURL(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "mapNumber")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid mapNumber format: %q", raw)
	}
	return n, nil
}

// UploadScoreboard godoc
// @Summary Загрузить скриншот таблицы результатов
// @Tags submissions
// @Description Принимает multipart-поле "file" (jpeg, png, webp) и возвращает путь в хранилище для отправки результата.
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Param teamID path string true "Team ID (uuid)"
// @Param map_number formData int true "Номер карты"
// @Param file formData file true "Скриншот"
// @Success 201 {object} map[string]interface{} "scoreboard_image_ref"
// @Failure 403 {object} map[string]string "Игрок не в команде"
// @Failure 422 {object} map[string]string "Неподдерживаемый файл"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams/{teamID}/scoreboards [post]
func (h *SubmissionHandler) UploadScoreboard(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScoreboardFormBytes)
	if err := r.ParseMultipartForm(maxScoreboardFormBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	mapNumber, err := strconv.Atoi(r.FormValue("map_number"))
	if err != nil {
		badRequestResponse(w, r, errors.New("map_number must be an integer"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	key, err := h.submissionService.UploadScoreboard(r.Context(), services.ScoreboardUpload{
		TournamentID: tournamentID,
		TeamID:       teamID,
		UploaderID:   playerID,
		MapNumber:    mapNumber,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"scoreboard_image_ref": key}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Submit godoc
// @Summary Отправить результат карты
// @Tags submissions
// @Description Создаёт или перезаписывает результат карты; статус сбрасывается в pending. Перезапись требует confirm_overwrite=true.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Param teamID path string true "Team ID (uuid)"
// @Param mapNumber path int true "Номер карты"
// @Param body body submitRequest true "Результат"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Команда не подтверждена в турнире / игрок не в команде"
// @Failure 409 {object} map[string]string "Требуется подтверждение перезаписи / карта аннулирована"
// @Failure 422 {object} map[string]string "Ошибка валидации / нет скриншота"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams/{teamID}/submissions/{mapNumber} [put]
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	mapNumber, err := getMapNumberFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sub, err := h.submissionService.Submit(r.Context(), services.SubmitInput{
		TournamentID:     tournamentID,
		TeamID:           teamID,
		SubmitterID:      playerID,
		MapNumber:        mapNumber,
		Placement:        req.Placement,
		Kills:            req.Kills,
		ImageRef:         req.ImageRef,
		ConfirmOverwrite: req.ConfirmOverwrite,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": sub}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeamSubmissions godoc
// @Summary Результаты команды по картам
// @Tags submissions
// @Produce json
// @Param tournamentID path string true "Tournament ID (uuid)"
// @Param teamID path string true "Team ID (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Игрок не в команде"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams/{teamID}/submissions [get]
func (h *SubmissionHandler) ListTeamSubmissions(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, ok := currentPlayer(w, r)
	if !ok {
		return
	}

	subs, err := h.submissionService.ListTeamSubmissions(r.Context(), tournamentID, teamID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": subs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
