package service_test

import (
	"testing"
	"time"

	"codearena/internal/match/model"
	"codearena/internal/match/service"
)

func participantAt(username string, score int, joined time.Time, finished *time.Time) *model.Participant {
	return &model.Participant{
		Username:   username,
		Score:      score,
		JoinedAt:   joined,
		FinishedAt: finished,
	}
}

func TestComputeLeaderboardOrdering(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	early := base.Add(1 * time.Minute)
	late := base.Add(5 * time.Minute)

	participants := []*model.Participant{
		participantAt("slow-finisher", 100, base, &late),
		participantAt("fast-finisher", 100, base, &early),
		participantAt("still-coding", 100, base.Add(2*time.Second), nil),
		participantAt("top-score", 200, base, &late),
		participantAt("zero", 0, base, nil),
	}

	entries := service.ComputeLeaderboard(participants, "fast-finisher", 5, map[string]int{
		"top-score": 1210, "fast-finisher": 1250,
	})

	want := []string{"top-score", "fast-finisher", "slow-finisher", "still-coding", "zero"}
	for i, username := range want {
		if entries[i].Username != username {
			t.Fatalf("position %d: expected %s, got %s", i, username, entries[i].Username)
		}
	}
	if entries[1].Rating != 1250 {
		t.Fatalf("expected rating carried through, got %d", entries[1].Rating)
	}
	if !entries[1].IsHost {
		t.Fatalf("expected fast-finisher flagged as host")
	}
	if entries[0].Status != service.StatusFinished || entries[3].Status != service.StatusCoding {
		t.Fatalf("unexpected statuses: %+v", entries)
	}
	if entries[0].CasesTotal != 5 {
		t.Fatalf("expected total cases 5, got %d", entries[0].CasesTotal)
	}
}

func TestComputeLeaderboardUnfinishedTies(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	participants := []*model.Participant{
		participantAt("beta", 0, base.Add(time.Second), nil),
		participantAt("alpha", 0, base.Add(time.Second), nil),
		participantAt("first-in", 0, base, nil),
	}
	entries := service.ComputeLeaderboard(participants, "first-in", 3, nil)
	want := []string{"first-in", "alpha", "beta"}
	for i, username := range want {
		if entries[i].Username != username {
			t.Fatalf("position %d: expected %s, got %s", i, username, entries[i].Username)
		}
	}
}
