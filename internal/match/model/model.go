package model

import (
	"crypto/rand"
	"math/big"
	"time"
)

// RoomState is the lifecycle state of a match room.
type RoomState string

const (
	RoomStateLobby    RoomState = "lobby"
	RoomStateActive   RoomState = "active"
	RoomStateFinished RoomState = "finished"
)

// Difficulty levels accepted by the problem source and repository.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// TopicRandom means the room does not restrict the problem topic.
const TopicRandom = "Random"

// TestCase is one input/expected-output pair of a problem.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"output"`
}

// EntryPoint describes the solving entry point of a problem.
// Method may be empty, in which case the judge falls back to the first
// public method declared in the candidate source.
type EntryPoint struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// Problem is immutable once assigned to a room.
type Problem struct {
	ID          int64
	Title       string
	Description string
	Difficulty  string
	Topic       string
	InitialCode string
	Entry       EntryPoint
	TestCases   []TestCase
	CreatedAt   time.Time
}

// Room is one match instance: one problem, one participant set, one lifecycle.
type Room struct {
	ID               int64
	Code             string
	HostUsername     string
	Passcode         string
	ProblemID        *int64
	State            RoomState
	Topic            string
	Difficulty       string
	AntiCheatEnabled bool
	CreatedAt        time.Time
}

// IsActive reports whether the room currently accepts run/submit actions.
func (r *Room) IsActive() bool {
	return r.State == RoomStateActive
}

// Participant is a user's record within exactly one room.
// (Username, RoomID) is unique.
type Participant struct {
	ID             int64
	RoomID         int64
	Username       string
	Score          int
	CompletedCases int
	TabSwitches    int
	JoinedAt       time.Time
	FinishedAt     *time.Time
}

// Finished reports whether the participant has a finish time.
func (p *Participant) Finished() bool {
	return p.FinishedAt != nil
}

// Submission is one graded attempt, immutable after creation.
type Submission struct {
	ID            string
	ParticipantID int64
	Code          string
	Passed        bool
	OutputLog     string
	ExecutionTime float64
	CreatedAt     time.Time
}

// Profile carries a user's cross-match rating state.
type Profile struct {
	Username      string
	Rating        int
	MatchesPlayed int
	Wins          int
}

// DefaultRating is the starting rating for new profiles.
const DefaultRating = 1200

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRoomCode generates a 6-character room code.
func NewRoomCode() string {
	buf := make([]byte, 6)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			buf[i] = roomCodeAlphabet[0]
			continue
		}
		buf[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(buf)
}
