package service

import (
	"sort"
	"time"

	"codearena/internal/match/model"
)

// Participant statuses shown on the leaderboard.
const (
	StatusFinished = "Finished"
	StatusCoding   = "Coding"
)

type LeaderboardEntry struct {
	Username    string     `json:"username"`
	Score       int        `json:"score"`
	Status      string     `json:"status"`
	CasesPassed int        `json:"cases_passed"`
	CasesTotal  int        `json:"cases_total"`
	Rating      int        `json:"rating"`
	IsHost      bool       `json:"is_host"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// ComputeLeaderboard ranks participants: score descending, then finishers
// before non-finishers, finishers by finish time ascending, non-finishers by
// join time then username so the order is deterministic.
func ComputeLeaderboard(participants []*model.Participant, hostUsername string, totalCases int, ratings map[string]int) []LeaderboardEntry {
	sorted := make([]*model.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Finished() != b.Finished() {
			return a.Finished()
		}
		if a.Finished() {
			if !a.FinishedAt.Equal(*b.FinishedAt) {
				return a.FinishedAt.Before(*b.FinishedAt)
			}
			return a.Username < b.Username
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Username < b.Username
	})

	entries := make([]LeaderboardEntry, 0, len(sorted))
	for _, p := range sorted {
		status := StatusCoding
		if p.Finished() {
			status = StatusFinished
		}
		entries = append(entries, LeaderboardEntry{
			Username:    p.Username,
			Score:       p.Score,
			Status:      status,
			CasesPassed: p.CompletedCases,
			CasesTotal:  totalCases,
			Rating:      ratings[p.Username],
			IsHost:      p.Username == hostUsername,
			FinishedAt:  p.FinishedAt,
		})
	}
	return entries
}

// allFinished reports whether every participant has a finish time. An empty
// room is never considered finished.
func allFinished(participants []*model.Participant) bool {
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if !p.Finished() {
			return false
		}
	}
	return true
}
