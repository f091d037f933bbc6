package service

import "codearena/internal/judge"

// Server event types on the websocket wire.
const (
	EventJoinNotify        = "join-notify"
	EventGameStart         = "game-start"
	EventRunResult         = "run-result"
	EventSubmitResult      = "submit-result"
	EventChatBroadcast     = "chat-broadcast"
	EventLeaderboardUpdate = "leaderboard-update"
	EventGameOver          = "game-over"
	EventSubmissionCode    = "submission-code"
	EventError             = "error"
)

// SystemUsername marks coordinator-authored chat messages.
const SystemUsername = "SYSTEM"

type JoinNotifyPayload struct {
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
}

type GameStartPayload struct {
	RoomID int64 `json:"room_id"`
}

type RunResultPayload struct {
	Report judge.Report `json:"report"`
}

type SubmitResultPayload struct {
	Report       judge.Report `json:"report"`
	Passed       bool         `json:"passed"`
	LimitReached bool         `json:"limit_reached"`
}

type ChatPayload struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type LeaderboardPayload struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type SubmissionCodePayload struct {
	Username      string  `json:"username"`
	Code          string  `json:"code"`
	Passed        bool    `json:"passed"`
	ExecutionTime float64 `json:"execution_time"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
