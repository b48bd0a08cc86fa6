package services

import (
	"sort"
	"strings"

	"github.com/Dosada05/squad-tournaments/models"
	"github.com/google/uuid"
)

// ScoringRules converts an approved submission into points.
type ScoringRules struct {
	// PlacementPoints maps a final placement to its points; unlisted placements score 0.
	PlacementPoints map[int]float64
	PointsPerKill   float64
}

func (r ScoringRules) Points(s *models.Submission) float64 {
	points := float64(s.TotalKills()) * r.PointsPerKill
	if s.Placement != nil {
		points += r.PlacementPoints[*s.Placement]
	}
	return points
}

// Aggregate builds the leaderboard from submissions. Only approved rows count;
// everything else is ignored. Teams without approved rows are absent.
func Aggregate(tournamentID uuid.UUID, submissions []*models.Submission, rules ScoringRules) []models.LeaderboardEntry {
	byTeam := make(map[uuid.UUID]*models.LeaderboardEntry)
	order := make([]uuid.UUID, 0)

	for _, sub := range submissions {
		if sub == nil || sub.Status != models.SubmissionApproved || sub.TournamentID != tournamentID {
			continue
		}
		entry, ok := byTeam[sub.TeamID]
		if !ok {
			entry = &models.LeaderboardEntry{TournamentID: tournamentID, TeamID: sub.TeamID}
			byTeam[sub.TeamID] = entry
			order = append(order, sub.TeamID)
		}
		if entry.TeamName == "" && sub.Team != nil {
			entry.TeamName = sub.Team.Name
		}
		entry.MapsPlayed++
		entry.TotalKills += sub.TotalKills()
		entry.TotalPoints += rules.Points(sub)
		if sub.UpdatedAt.After(entry.UpdatedAt) {
			entry.UpdatedAt = sub.UpdatedAt
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byTeam[id])
	}
	rankEntries(entries)
	return entries
}

// rankEntries sorts by points, then kills, then name and id, and assigns ranks.
// Teams level on points and kills share a rank.
func rankEntries(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.TotalKills != b.TotalKills {
			return a.TotalKills > b.TotalKills
		}
		if an, bn := strings.ToLower(a.TeamName), strings.ToLower(b.TeamName); an != bn {
			return an < bn
		}
		return a.TeamID.String() < b.TeamID.String()
	})

	for i := range entries {
		if i > 0 && entries[i].TotalPoints == entries[i-1].TotalPoints && entries[i].TotalKills == entries[i-1].TotalKills {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
}
