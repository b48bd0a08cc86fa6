package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// stubSubmissionService records the last call; unimplemented methods panic via the nil embed.
type stubSubmissionService struct {
	services.SubmissionService

	submitted  *services.SubmitInput
	uploaded   *services.ScoreboardUpload
	uploadBody []byte
	correction *services.Correction
	pendingFor *uuid.UUID
	err        error
}

func (s *stubSubmissionService) Submit(_ context.Context, input services.SubmitInput) (*models.Submission, error) {
	s.submitted = &input
	if s.err != nil {
		return nil, s.err
	}
	placement := input.Placement
	return &models.Submission{
		ID:           uuid.New(),
		TournamentID: input.TournamentID,
		TeamID:       input.TeamID,
		MapNumber:    input.MapNumber,
		Placement:    &placement,
		Kills:        input.Kills,
		ImageRef:     input.ImageRef,
		Status:       models.SubmissionPending,
	}, nil
}

func (s *stubSubmissionService) UploadScoreboard(_ context.Context, upload services.ScoreboardUpload) (string, error) {
	s.uploaded = &upload
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	s.uploadBody = body
	if s.err != nil {
		return "", s.err
	}
	return upload.TournamentID.String() + "/" + upload.TeamID.String() + "/map_1.png", nil
}

func (s *stubSubmissionService) ModeratorApprove(_ context.Context, submissionID uuid.UUID, correction *services.Correction, _ uuid.UUID) (*models.Submission, error) {
	s.correction = correction
	if s.err != nil {
		return nil, s.err
	}
	return &models.Submission{ID: submissionID, Status: models.SubmissionApproved}, nil
}

func (s *stubSubmissionService) ModeratorVoid(_ context.Context, submissionID, _ uuid.UUID) (*models.Submission, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Submission{ID: submissionID, Status: models.SubmissionVoid}, nil
}

func (s *stubSubmissionService) ListPending(_ context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error) {
	s.pendingFor = tournamentID
	return []*models.Submission{}, s.err
}

func submissionRouter(h *SubmissionHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/tournaments/{tournamentID}/teams/{teamID}", func(r chi.Router) {
		r.Post("/scoreboards", h.UploadScoreboard)
		r.Put("/submissions/{mapNumber}", h.Submit)
	})
	return r
}

func TestSubmitHandler(t *testing.T) {
	tournamentID, teamID, player := uuid.New(), uuid.New(), uuid.New()
	path := "/tournaments/" + tournamentID.String() + "/teams/" + teamID.String() + "/submissions/"

	tests := []struct {
		name       string
		mapSegment string
		body       string
		auth       bool
		svcErr     error
		wantStatus int
	}{
		{
			name:       "accepted",
			mapSegment: "2",
			body:       `{"placement":3,"kills":[4,2,1],"scoreboard_image_ref":"x.png","confirm_overwrite":true}`,
			auth:       true,
			wantStatus: http.StatusOK,
		},
		{name: "no token", mapSegment: "2", body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "bad map number", mapSegment: "two", body: `{}`, auth: true, wantStatus: http.StatusBadRequest},
		{name: "unknown field", mapSegment: "1", body: `{"score":1}`, auth: true, wantStatus: http.StatusBadRequest},
		{
			name:       "overwrite not confirmed",
			mapSegment: "1",
			body:       `{"placement":1,"kills":[0,0,0],"scoreboard_image_ref":"x.png"}`,
			auth:       true,
			svcErr:     services.ErrOverwriteNotConfirmed,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not a registrant",
			mapSegment: "1",
			body:       `{"placement":1,"kills":[0,0,0],"scoreboard_image_ref":"x.png"}`,
			auth:       true,
			svcErr:     services.ErrNotEligible,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubSubmissionService{err: tt.svcErr}
			req := httptest.NewRequest(http.MethodPut, path+tt.mapSegment, strings.NewReader(tt.body))
			if tt.auth {
				req = asPlayer(req, player)
			}
			rec := httptest.NewRecorder()
			submissionRouter(NewSubmissionHandler(svc)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			in := svc.submitted
			if in == nil {
				t.Fatal("service not called")
			}
			if in.TournamentID != tournamentID || in.TeamID != teamID || in.SubmitterID != player {
				t.Fatalf("ids not forwarded: %+v", in)
			}
			if in.MapNumber != 2 || in.Placement != 3 || in.Kills != [3]int{4, 2, 1} || !in.ConfirmOverwrite {
				t.Fatalf("values not forwarded: %+v", in)
			}
		})
	}
}

func TestUploadScoreboardHandler(t *testing.T) {
	tournamentID, teamID, player := uuid.New(), uuid.New(), uuid.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("map_number", "1"); err != nil {
		t.Fatal(err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="board.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost,
		"/tournaments/"+tournamentID.String()+"/teams/"+teamID.String()+"/scoreboards", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = asPlayer(req, player)

	svc := &stubSubmissionService{}
	rec := httptest.NewRecorder()
	submissionRouter(NewSubmissionHandler(svc)).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := decodeBody(t, rec)["scoreboard_image_ref"]; !ok {
		t.Fatalf("missing scoreboard_image_ref: %s", rec.Body.String())
	}
	up := svc.uploaded
	if up == nil || up.ContentType != "image/png" || up.MapNumber != 1 || up.UploaderID != player {
		t.Fatalf("upload not forwarded: %+v", up)
	}
	if string(svc.uploadBody) != "png-bytes" {
		t.Fatalf("body = %q", svc.uploadBody)
	}
}

func TestUploadScoreboardStoreUnavailable(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("map_number", "1")
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="board.png"`)
	header.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(header)
	part.Write([]byte("x"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost,
		"/tournaments/"+uuid.NewString()+"/teams/"+uuid.NewString()+"/scoreboards", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = asPlayer(req, uuid.New())

	rec := httptest.NewRecorder()
	submissionRouter(NewSubmissionHandler(&stubSubmissionService{err: services.ErrAssetStoreUnavailable})).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
