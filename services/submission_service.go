package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/Dosada05/squad-tournaments/storage"
	"github.com/google/uuid"
)

const maxScoreboardBytes = 10 << 20 // 10 MiB

// SubmitInput is one team's result for one map. ConfirmOverwrite must be set when
// the caller has seen an existing submission for the map and chose to replace it.
type SubmitInput struct {
	TournamentID     uuid.UUID
	TeamID           uuid.UUID
	SubmitterID      uuid.UUID
	MapNumber        int
	Placement        int
	Kills            [models.TeamSize]int
	ImageRef         string
	ConfirmOverwrite bool
}

// Correction holds moderator overrides applied at approval. Nil fields keep the submitted value.
type Correction struct {
	MapNumber *int                  `json:"map_number,omitempty"`
	Placement *int                  `json:"placement,omitempty"`
	Kills     *[models.TeamSize]int `json:"kills,omitempty"`
}

type ScoreboardUpload struct {
	TournamentID uuid.UUID
	TeamID       uuid.UUID
	UploaderID   uuid.UUID
	MapNumber    int
	ContentType  string
	Size         int64
	Body         io.Reader
}

type SubmissionService interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Submission, error)
	ModeratorApprove(ctx context.Context, submissionID uuid.UUID, correction *Correction, moderatorID uuid.UUID) (*models.Submission, error)
	ModeratorReject(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)
	// ModeratorVoid withdraws an approved result. Void is terminal.
	ModeratorVoid(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)
	// ListPending returns the moderation queue, newest first. A nil tournamentID lists every tournament.
	ListPending(ctx context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error)
	ListTeamSubmissions(ctx context.Context, tournamentID, teamID, callerID uuid.UUID) ([]*models.Submission, error)
	// UploadScoreboard stores the image and returns its storage path for Submit.
	UploadScoreboard(ctx context.Context, upload ScoreboardUpload) (string, error)
	// ScoreboardURL returns a short lived link to the submission's image.
	ScoreboardURL(ctx context.Context, submissionID uuid.UUID) (string, error)
}

type SubmissionServiceOptions struct {
	MaxMapsPerTournament int
	ScoreboardURLTTL     time.Duration
}

type submissionService struct {
	submissionRepo   repositories.SubmissionRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	tournamentRepo   repositories.TournamentRepository
	moderationRepo   repositories.ModerationRepository
	uploader         storage.FileUploader
	players          PlayerDirectory
	opts             SubmissionServiceOptions
	logger           *slog.Logger
	now              func() time.Time
}

// NewSubmissionService creates the service. uploader may be nil when no object
// store is configured; uploads and preview links then fail with ErrAssetStoreUnavailable.
func NewSubmissionService(
	submissionRepo repositories.SubmissionRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	moderationRepo repositories.ModerationRepository,
	uploader storage.FileUploader,
	players PlayerDirectory,
	opts SubmissionServiceOptions,
	logger *slog.Logger,
) SubmissionService {
	return &submissionService{
		submissionRepo:   submissionRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		tournamentRepo:   tournamentRepo,
		moderationRepo:   moderationRepo,
		uploader:         uploader,
		players:          players,
		opts:             opts,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *submissionService) mapLimit(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	tournament, err := loadTournament(ctx, s.tournamentRepo, tournamentID)
	if err != nil {
		return 0, err
	}
	return tournament.MapLimit(s.opts.MaxMapsPerTournament), nil
}

func validateValues(v models.SubmissionValues, maxMaps int) error {
	if v.MapNumber < 1 || v.MapNumber > maxMaps {
		return validationError(fmt.Errorf("%w: %d not in 1..%d", ErrInvalidMapNumber, v.MapNumber, maxMaps))
	}
	if v.Placement < 1 {
		return validationError(ErrInvalidPlacement)
	}
	for _, k := range v.Kills {
		if k < 0 {
			return validationError(ErrNegativeKills)
		}
	}
	return nil
}

func mapSubmissionError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrSubmissionNotFound):
		return ErrSubmissionNotFound
	case errors.Is(err, repositories.ErrNotConfirmedRegistrant):
		return ErrUnauthorized
	case errors.Is(err, repositories.ErrSubmissionVoided):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, repositories.ErrSubmissionConflict):
		return ErrSubmissionConflict
	case errors.Is(err, repositories.ErrSubmissionInvalid):
		return validationError(err)
	}
	return nil
}

func (s *submissionService) Submit(ctx context.Context, input SubmitInput) (*models.Submission, error) {
	if _, err := loadTeamMembership(ctx, s.teamRepo, input.TeamID, input.SubmitterID); err != nil {
		return nil, err
	}
	maxMaps, err := s.mapLimit(ctx, input.TournamentID)
	if err != nil {
		return nil, err
	}

	values := models.SubmissionValues{MapNumber: input.MapNumber, Placement: input.Placement, Kills: input.Kills}
	if err := validateValues(values, maxMaps); err != nil {
		return nil, err
	}
	imageRef := strings.TrimSpace(input.ImageRef)
	if imageRef == "" {
		return nil, ErrMissingAsset
	}
	if !storage.ScoreboardKeyBelongsTo(imageRef, input.TournamentID, input.TeamID) {
		return nil, validationError(ErrForeignImageRef)
	}

	// Отказ по регистрации важнее вопроса о перезаписи. Upsert проверяет это
	// условие ещё раз атомарно.
	registered, err := s.registrationRepo.IsConfirmedRegistrant(ctx, input.TournamentID, input.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	if !registered {
		return nil, ErrUnauthorized
	}

	// Перезапись существующего результата требует явного подтверждения.
	existing, err := s.submissionRepo.GetByKey(ctx, input.TournamentID, input.TeamID, input.MapNumber)
	switch {
	case err == nil:
		if existing.Status == models.SubmissionVoid {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, repositories.ErrSubmissionVoided)
		}
		if !input.ConfirmOverwrite {
			return nil, ErrOverwriteNotConfirmed
		}
	case errors.Is(err, repositories.ErrSubmissionNotFound):
	default:
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	placement := input.Placement
	sub := &models.Submission{
		TournamentID: input.TournamentID,
		TeamID:       input.TeamID,
		MapNumber:    input.MapNumber,
		Placement:    &placement,
		Kills:        input.Kills,
		ImageRef:     imageRef,
	}
	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		if mapped := mapSubmissionError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.InfoContext(ctx, "Submission saved",
		slog.String("submission_id", sub.ID.String()),
		slog.String("tournament_id", sub.TournamentID.String()),
		slog.String("team_id", sub.TeamID.String()),
		slog.Int("map_number", sub.MapNumber),
		slog.Bool("overwrite", existing != nil))

	if existing != nil && existing.ImageRef != sub.ImageRef {
		s.dropReplacedScoreboard(ctx, existing.ImageRef)
	}
	return sub, nil
}

// dropReplacedScoreboard deletes an image no submission points to anymore.
// Failures only leave an orphaned object behind, so they are logged and ignored.
func (s *submissionService) dropReplacedScoreboard(ctx context.Context, key string) {
	if s.uploader == nil || key == "" {
		return
	}
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete replaced scoreboard",
			slog.String("key", key),
			slog.Any("error", err))
	}
}

func (s *submissionService) ModeratorApprove(ctx context.Context, submissionID uuid.UUID, correction *Correction, moderatorID uuid.UUID) (*models.Submission, error) {
	current, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if mapped := mapSubmissionError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}

	values := models.SubmissionValues{MapNumber: current.MapNumber, Kills: current.Kills}
	if current.Placement != nil {
		values.Placement = *current.Placement
	}
	if correction != nil {
		if correction.MapNumber != nil {
			values.MapNumber = *correction.MapNumber
		}
		if correction.Placement != nil {
			values.Placement = *correction.Placement
		}
		if correction.Kills != nil {
			values.Kills = *correction.Kills
		}
	}

	switch {
	case current.Status == models.SubmissionApproved && values.Matches(current):
		return current, nil
	case current.Status != models.SubmissionPending:
		return nil, fmt.Errorf("%w: cannot approve a %s submission", ErrInvalidTransition, current.Status)
	}

	maxMaps, err := s.mapLimit(ctx, current.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := validateValues(values, maxMaps); err != nil {
		return nil, err
	}

	approved, err := s.moderationRepo.ApproveSubmission(ctx, submissionID, values, moderatorID)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusMismatch) {
			// Another moderator acted first; identical approval counts as success.
			return s.settled(ctx, submissionID, models.SubmissionApproved, &values)
		}
		if mapped := mapSubmissionError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to approve submission %s: %w", submissionID, err)
	}

	s.logger.InfoContext(ctx, "Submission approved",
		slog.String("submission_id", submissionID.String()),
		slog.String("moderator_id", moderatorID.String()),
		slog.Bool("corrected", !values.Matches(current)))
	return approved, nil
}

func (s *submissionService) ModeratorReject(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	return s.moderate(ctx, submissionID, moderatorID, models.SubmissionPending, models.SubmissionRejected, s.moderationRepo.RejectSubmission)
}

func (s *submissionService) ModeratorVoid(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	return s.moderate(ctx, submissionID, moderatorID, models.SubmissionApproved, models.SubmissionVoid, s.moderationRepo.VoidSubmission)
}

type moderationFunc func(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error)

// moderate runs a from -> to transition. A submission already in the target
// state is returned unchanged.
func (s *submissionService) moderate(ctx context.Context, submissionID, moderatorID uuid.UUID, from, to models.SubmissionStatus, apply moderationFunc) (*models.Submission, error) {
	current, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if mapped := mapSubmissionError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	switch current.Status {
	case to:
		return current, nil
	case from:
	default:
		return nil, fmt.Errorf("%w: cannot move a %s submission to %s", ErrInvalidTransition, current.Status, to)
	}

	updated, err := apply(ctx, submissionID, moderatorID)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusMismatch) {
			return s.settled(ctx, submissionID, to, nil)
		}
		return nil, fmt.Errorf("failed to move submission %s to %s: %w", submissionID, to, err)
	}

	s.logger.InfoContext(ctx, "Submission moderated",
		slog.String("submission_id", submissionID.String()),
		slog.String("moderator_id", moderatorID.String()),
		slog.String("status", string(to)))
	return updated, nil
}

// settled re-reads a submission whose guarded update matched nothing and accepts
// it when it already sits in the wanted state (with the wanted values, if given).
func (s *submissionService) settled(ctx context.Context, submissionID uuid.UUID, want models.SubmissionStatus, values *models.SubmissionValues) (*models.Submission, error) {
	current, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if mapped := mapSubmissionError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to reload submission %s: %w", submissionID, err)
	}
	if current.Status == want && (values == nil || values.Matches(current)) {
		return current, nil
	}
	return nil, fmt.Errorf("%w: submission is %s", ErrInvalidTransition, current.Status)
}

func (s *submissionService) ListPending(ctx context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error) {
	subs, err := s.submissionRepo.ListPending(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}
	s.players.DecorateTeams(ctx, submissionTeams(subs)...)
	return subs, nil
}

func (s *submissionService) ListTeamSubmissions(ctx context.Context, tournamentID, teamID, callerID uuid.UUID) ([]*models.Submission, error) {
	if _, err := loadTeamMembership(ctx, s.teamRepo, teamID, callerID); err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListByTeam(ctx, tournamentID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions of team %s: %w", teamID, err)
	}
	return subs, nil
}

func (s *submissionService) UploadScoreboard(ctx context.Context, upload ScoreboardUpload) (string, error) {
	if s.uploader == nil {
		return "", ErrAssetStoreUnavailable
	}
	if _, err := loadTeamMembership(ctx, s.teamRepo, upload.TeamID, upload.UploaderID); err != nil {
		return "", err
	}
	maxMaps, err := s.mapLimit(ctx, upload.TournamentID)
	if err != nil {
		return "", err
	}
	if upload.MapNumber < 1 || upload.MapNumber > maxMaps {
		return "", validationError(fmt.Errorf("%w: %d not in 1..%d", ErrInvalidMapNumber, upload.MapNumber, maxMaps))
	}
	if upload.Body == nil || upload.Size == 0 {
		return "", ErrMissingAsset
	}
	if upload.Size > maxScoreboardBytes {
		return "", validationError(ErrScoreboardTooBig)
	}
	ext, err := storage.ExtensionForImage(upload.ContentType)
	if err != nil {
		return "", validationError(fmt.Errorf("%w: %w", ErrInvalidImageType, err))
	}

	key := storage.ScoreboardKey(upload.TournamentID, upload.TeamID, upload.MapNumber, s.now(), ext)
	if _, err := s.uploader.Upload(ctx, key, upload.ContentType, upload.Size, upload.Body); err != nil {
		return "", fmt.Errorf("failed to upload scoreboard: %w", err)
	}

	s.logger.InfoContext(ctx, "Scoreboard uploaded",
		slog.String("key", key),
		slog.String("team_id", upload.TeamID.String()),
		slog.Int64("size", upload.Size))
	return key, nil
}

func (s *submissionService) ScoreboardURL(ctx context.Context, submissionID uuid.UUID) (string, error) {
	if s.uploader == nil {
		return "", ErrAssetStoreUnavailable
	}
	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if mapped := mapSubmissionError(err); mapped != nil {
			return "", mapped
		}
		return "", fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	if sub.ImageRef == "" {
		return "", ErrMissingAsset
	}
	url, err := s.uploader.PresignedURL(ctx, sub.ImageRef, s.opts.ScoreboardURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign scoreboard link: %w", err)
	}
	return url, nil
}
