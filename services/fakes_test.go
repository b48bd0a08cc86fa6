package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/Dosada05/squad-tournaments/repositories"
	"github.com/Dosada05/squad-tournaments/storage"
	"github.com/google/uuid"
)

// memStore models the database: every uniqueness rule is checked under one mutex,
// the way the unique constraints serialize concurrent writers.
type memStore struct {
	mu            sync.Mutex
	teams         map[uuid.UUID]*models.Team
	tournaments   map[uuid.UUID]*models.Tournament
	registrations map[uuid.UUID]*models.Registration
	submissions   map[uuid.UUID]*models.Submission
	gamertags     map[uuid.UUID]string
	audit         []repositories.ModerationOperation
	snapshots     map[uuid.UUID][]models.LeaderboardEntry
	playerErr     error
	clock         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		teams:         make(map[uuid.UUID]*models.Team),
		tournaments:   make(map[uuid.UUID]*models.Tournament),
		registrations: make(map[uuid.UUID]*models.Registration),
		submissions:   make(map[uuid.UUID]*models.Submission),
		gamertags:     make(map[uuid.UUID]string),
		snapshots:     make(map[uuid.UUID][]models.LeaderboardEntry),
		clock:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func cloneTeam(t *models.Team) *models.Team {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneSubmission(s *models.Submission) *models.Submission {
	c := *s
	if s.Placement != nil {
		p := *s.Placement
		c.Placement = &p
	}
	c.Team = cloneTeam(s.Team)
	return &c
}

func cloneRegistration(r *models.Registration) *models.Registration {
	c := *r
	c.Team = cloneTeam(r.Team)
	return &c
}

func (m *memStore) addTournament(name string, teamsTotal *int) *models.Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Tournament{ID: uuid.New(), Name: name, Status: models.TournamentStatusOngoing, TeamsTotal: teamsTotal, CreatedAt: m.tick()}
	m.tournaments[t.ID] = t
	return t
}

func (m *memStore) confirmedRegistrant(tournamentID, teamID uuid.UUID) bool {
	for _, r := range m.registrations {
		if r.TournamentID == tournamentID && r.TeamID == teamID && r.Confirmed {
			return true
		}
	}
	return false
}

// --- teams ---

type memTeams struct{ *memStore }

func (m memTeams) Create(ctx context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = uuid.New()
	team.CreatedAt = m.tick()
	team.Slots[0].Confirmed = true
	team.Slots[1].Confirmed = false
	team.Slots[2].Confirmed = false
	team.TeamConfirmed = false
	m.teams[team.ID] = cloneTeam(team)
	return nil
}

func (m memTeams) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return cloneTeam(t), nil
}

func (m memTeams) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	teams := make([]*models.Team, 0)
	for _, t := range m.teams {
		if t.HasMember(playerID) {
			teams = append(teams, cloneTeam(t))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (m memTeams) ConfirmSlot(ctx context.Context, teamID, playerID uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	slot := t.SlotOf(playerID)
	if slot < 1 || t.Slots[slot].Confirmed {
		return nil, repositories.ErrTeamSlotNotAvailable
	}
	t.Slots[slot].Confirmed = true
	return cloneTeam(t), nil
}

// --- players ---

type memPlayers struct{ *memStore }

func (m memPlayers) GamertagsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playerErr != nil {
		return nil, m.playerErr
	}
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if tag, ok := m.gamertags[id]; ok {
			out[id] = tag
		}
	}
	return out, nil
}

// --- tournaments ---

type memTournaments struct{ *memStore }

func (m memTournaments) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (m memTournaments) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range m.tournaments {
		if t.Status == status {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- registrations ---

type memRegistrations struct{ *memStore }

func (m *memStore) capacityReached(tournamentID uuid.UUID) bool {
	t := m.tournaments[tournamentID]
	if t == nil || t.TeamsTotal == nil {
		return false
	}
	confirmed := 0
	for _, r := range m.registrations {
		if r.TournamentID == tournamentID && r.Confirmed {
			confirmed++
		}
	}
	return confirmed >= *t.TeamsTotal
}

func (m memRegistrations) Create(ctx context.Context, reg *models.Registration, capacityLimited bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tournaments[reg.TournamentID]; !ok {
		return repositories.ErrRegistrationTournamentInvalid
	}
	if _, ok := m.teams[reg.TeamID]; !ok {
		return repositories.ErrRegistrationTeamInvalid
	}
	if capacityLimited && m.capacityReached(reg.TournamentID) {
		return repositories.ErrTournamentCapacityReached
	}
	for _, r := range m.registrations {
		if r.TournamentID == reg.TournamentID && r.TeamID == reg.TeamID {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = uuid.New()
	reg.Confirmed = false
	reg.CreatedAt = m.tick()
	m.registrations[reg.ID] = cloneRegistration(reg)
	return nil
}

func (m memRegistrations) withTeam(r *models.Registration) *models.Registration {
	c := cloneRegistration(r)
	c.Team = cloneTeam(m.teams[r.TeamID])
	return c
}

func (m memRegistrations) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	return m.withTeam(r), nil
}

func (m memRegistrations) IsConfirmedRegistrant(ctx context.Context, tournamentID, teamID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmedRegistrant(tournamentID, teamID), nil
}

func (m memRegistrations) collect(keep func(*models.Registration) bool) []*models.Registration {
	out := make([]*models.Registration, 0)
	for _, r := range m.registrations {
		if keep(r) {
			out = append(out, m.withTeam(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confirmed != out[j].Confirmed {
			return out[i].Confirmed
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m memRegistrations) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(r *models.Registration) bool { return r.TournamentID == tournamentID }), nil
}

func (m memRegistrations) ListUnconfirmed(ctx context.Context) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(r *models.Registration) bool { return !r.Confirmed }), nil
}

func (m memRegistrations) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(r *models.Registration) bool {
		t := m.teams[r.TeamID]
		return t != nil && t.HasMember(playerID)
	}), nil
}

// --- submissions ---

type memSubmissions struct{ *memStore }

func (m memSubmissions) Upsert(ctx context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.confirmedRegistrant(s.TournamentID, s.TeamID) {
		return repositories.ErrNotConfirmedRegistrant
	}
	now := m.tick()
	for _, existing := range m.submissions {
		if existing.TournamentID == s.TournamentID && existing.TeamID == s.TeamID && existing.MapNumber == s.MapNumber {
			if existing.Status == models.SubmissionVoid {
				return repositories.ErrSubmissionVoided
			}
			existing.Placement = s.Placement
			existing.Kills = s.Kills
			existing.ImageRef = s.ImageRef
			existing.Status = models.SubmissionPending
			existing.UpdatedAt = now
			*s = *cloneSubmission(existing)
			return nil
		}
	}
	s.ID = uuid.New()
	s.Status = models.SubmissionPending
	s.CreatedAt = now
	s.UpdatedAt = now
	m.submissions[s.ID] = cloneSubmission(s)
	return nil
}

func (m memSubmissions) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	return cloneSubmission(s), nil
}

func (m memSubmissions) GetByKey(ctx context.Context, tournamentID, teamID uuid.UUID, mapNumber int) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.TournamentID == tournamentID && s.TeamID == teamID && s.MapNumber == mapNumber {
			return cloneSubmission(s), nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (m memSubmissions) collect(keep func(*models.Submission) bool) []*models.Submission {
	out := make([]*models.Submission, 0)
	for _, s := range m.submissions {
		if keep(s) {
			c := cloneSubmission(s)
			c.Team = cloneTeam(m.teams[s.TeamID])
			out = append(out, c)
		}
	}
	return out
}

func (m memSubmissions) ListPending(ctx context.Context, tournamentID *uuid.UUID) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.collect(func(s *models.Submission) bool {
		return s.Status == models.SubmissionPending && (tournamentID == nil || s.TournamentID == *tournamentID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memSubmissions) ListByTeam(ctx context.Context, tournamentID, teamID uuid.UUID) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.collect(func(s *models.Submission) bool { return s.TournamentID == tournamentID && s.TeamID == teamID })
	sort.Slice(out, func(i, j int) bool { return out[i].MapNumber < out[j].MapNumber })
	return out, nil
}

func (m memSubmissions) ListApproved(ctx context.Context, tournamentID uuid.UUID) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.collect(func(s *models.Submission) bool {
		return s.TournamentID == tournamentID && s.Status == models.SubmissionApproved && m.confirmedRegistrant(s.TournamentID, s.TeamID)
	})
	return out, nil
}

// --- moderation ---

type memModeration struct{ *memStore }

func (m memModeration) ConfirmTeam(ctx context.Context, teamID, moderatorID uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	if !t.AllSlotsConfirmed() {
		return nil, repositories.ErrTeamNotReady
	}
	t.TeamConfirmed = true
	m.audit = append(m.audit, repositories.OpConfirmTeam)
	return cloneTeam(t), nil
}

func (m memModeration) ConfirmRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID, capacityLimited bool) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[registrationID]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	if r.Confirmed {
		return cloneRegistration(r), nil
	}
	if capacityLimited && m.capacityReached(r.TournamentID) {
		return nil, repositories.ErrTournamentCapacityReached
	}
	r.Confirmed = true
	m.audit = append(m.audit, repositories.OpConfirmRegistration)
	return cloneRegistration(r), nil
}

func (m memModeration) DenyRegistration(ctx context.Context, registrationID, moderatorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registrations[registrationID]; !ok {
		return repositories.ErrRegistrationNotFound
	}
	delete(m.registrations, registrationID)
	m.audit = append(m.audit, repositories.OpDenyRegistration)
	return nil
}

func (m memModeration) transition(id uuid.UUID, from, to models.SubmissionStatus, op repositories.ModerationOperation, apply func(*models.Submission) error) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok || s.Status != from {
		return nil, repositories.ErrStatusMismatch
	}
	if apply != nil {
		if err := apply(s); err != nil {
			return nil, err
		}
	}
	s.Status = to
	s.UpdatedAt = m.tick()
	m.audit = append(m.audit, op)
	return cloneSubmission(s), nil
}

func (m memModeration) ApproveSubmission(ctx context.Context, submissionID uuid.UUID, v models.SubmissionValues, moderatorID uuid.UUID) (*models.Submission, error) {
	return m.transition(submissionID, models.SubmissionPending, models.SubmissionApproved, repositories.OpApproveSubmission, func(s *models.Submission) error {
		for _, other := range m.submissions {
			if other.ID != s.ID && other.TournamentID == s.TournamentID && other.TeamID == s.TeamID && other.MapNumber == v.MapNumber {
				return repositories.ErrSubmissionConflict
			}
		}
		placement := v.Placement
		s.MapNumber = v.MapNumber
		s.Placement = &placement
		s.Kills = v.Kills
		return nil
	})
}

func (m memModeration) RejectSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	return m.transition(submissionID, models.SubmissionPending, models.SubmissionRejected, repositories.OpRejectSubmission, nil)
}

func (m memModeration) VoidSubmission(ctx context.Context, submissionID, moderatorID uuid.UUID) (*models.Submission, error) {
	return m.transition(submissionID, models.SubmissionApproved, models.SubmissionVoid, repositories.OpVoidSubmission, nil)
}

// --- leaderboard snapshots ---

type memSnapshots struct{ *memStore }

func (m memSnapshots) Replace(ctx context.Context, tournamentID uuid.UUID, entries []models.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[tournamentID] = append([]models.LeaderboardEntry(nil), entries...)
	return nil
}

func (m memSnapshots) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LeaderboardEntry(nil), m.snapshots[tournamentID]...), nil
}

// --- object store ---

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	sizes   map[string]int64
}

func newMemUploader() *memUploader {
	return &memUploader{objects: make(map[string][]byte), sizes: make(map[string]int64)}
}

func (u *memUploader) Upload(ctx context.Context, key, contentType string, size int64, reader io.Reader) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	if int64(buf.Len()) != size {
		return nil, fmt.Errorf("declared %d bytes, read %d", size, buf.Len())
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	u.sizes[key] = size
	return &storage.UploadResult{Key: key}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memUploader) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key + "?ttl=" + ttl.String(), nil
}

// --- wiring ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store         *memStore
	uploader      *memUploader
	teams         TeamService
	registrations RegistrationService
	submissions   SubmissionService
	leaderboard   LeaderboardService
}

var testRules = ScoringRules{
	PlacementPoints: map[int]float64{1: 15, 2: 12, 3: 10, 4: 8},
	PointsPerKill:   1,
}

func newTestEnv(enforceCapacity bool) *testEnv {
	store := newMemStore()
	uploader := newMemUploader()
	logger := discardLogger()
	players := NewPlayerDirectory(memPlayers{store}, logger)
	moderation := memModeration{store}

	return &testEnv{
		store:    store,
		uploader: uploader,
		teams:    NewTeamService(memTeams{store}, moderation, players, logger),
		registrations: NewRegistrationService(memRegistrations{store}, memTeams{store}, memTournaments{store}, moderation, players,
			RegistrationServiceOptions{EnforceCapacity: enforceCapacity}, logger),
		submissions: NewSubmissionService(memSubmissions{store}, memRegistrations{store}, memTeams{store}, memTournaments{store}, moderation, uploader, players,
			SubmissionServiceOptions{MaxMapsPerTournament: 15, ScoreboardURLTTL: time.Minute}, logger),
		leaderboard: NewLeaderboardService(memSubmissions{store}, memRegistrations{store}, memTournaments{store}, memSnapshots{store},
			testRules, logger),
	}
}
