// Package service implements the session coordinator: the single writer for
// room state, participant progress and match results.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"codearena/internal/common/db"
	"codearena/internal/judge"
	"codearena/internal/match/model"
	"codearena/internal/match/problemsource"
	"codearena/internal/match/repository"
	"codearena/internal/realtime"
	apperr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	submissionLimit = 3

	fullPassScore = 100

	defaultJudgePoolSize = 8
	defaultSlotWait      = 2 * time.Second

	roomCodeAttempts = 5

	chatTimeLayout = "15:04"
)

// Deps are the coordinator's collaborators.
type Deps struct {
	Database     db.Database
	Rooms        repository.RoomRepository
	Participants repository.ParticipantRepository
	Submissions  repository.SubmissionRepository
	Profiles     repository.ProfileRepository
	Problems     repository.ProblemRepository
	Source       problemsource.Source
	Judge        judge.Judge
	Hub          *realtime.Hub
	Results      ResultPublisher
}

// Config tunes the judge worker pool.
type Config struct {
	JudgePoolSize int           `yaml:"judgePoolSize"`
	SlotWait      time.Duration `yaml:"slotWait"`
}

type Coordinator struct {
	database     db.Database
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	submissions  repository.SubmissionRepository
	profiles     repository.ProfileRepository
	problems     repository.ProblemRepository
	source       problemsource.Source
	judge        judge.Judge
	hub          *realtime.Hub
	results      ResultPublisher

	sem      chan struct{}
	slotWait time.Duration

	mu       sync.Mutex
	runtimes map[string]*roomRuntime
}

// roomRuntime serializes all mutations of one room. inflight counts
// submissions reserved against the limit while their judge run is still in
// progress, so concurrent submits cannot slip past the cap.
type roomRuntime struct {
	mu           sync.Mutex
	inflight     map[string]int
	gameOverSent bool
}

func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	poolSize := cfg.JudgePoolSize
	if poolSize <= 0 {
		poolSize = defaultJudgePoolSize
	}
	slotWait := cfg.SlotWait
	if slotWait <= 0 {
		slotWait = defaultSlotWait
	}
	results := deps.Results
	if results == nil {
		results = NopResultPublisher{}
	}
	return &Coordinator{
		database:     deps.Database,
		rooms:        deps.Rooms,
		participants: deps.Participants,
		submissions:  deps.Submissions,
		profiles:     deps.Profiles,
		problems:     deps.Problems,
		source:       deps.Source,
		judge:        deps.Judge,
		hub:          deps.Hub,
		results:      results,
		sem:          make(chan struct{}, poolSize),
		slotWait:     slotWait,
		runtimes:     make(map[string]*roomRuntime),
	}
}

// SubmitOutcome is returned to the submitting client only.
type SubmitOutcome struct {
	Report       judge.Report
	Passed       bool
	LimitReached bool
}

func (c *Coordinator) runtime(roomCode string) *roomRuntime {
	c.mu.Lock()
	defer c.mu.Unlock()
	rt, ok := c.runtimes[roomCode]
	if !ok {
		rt = &roomRuntime{inflight: make(map[string]int)}
		c.runtimes[roomCode] = rt
	}
	return rt
}

// CreateRoom generates a fresh room code and persists the room in lobby
// state. Code collisions are retried.
func (c *Coordinator) CreateRoom(ctx context.Context, host, topic, difficulty, passcode string, antiCheat bool) (*model.Room, error) {
	if host == "" {
		return nil, apperr.ValidationError("host", "required")
	}
	if topic == "" {
		topic = model.TopicRandom
	}
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	room := &model.Room{
		HostUsername:     host,
		Passcode:         passcode,
		State:            model.RoomStateLobby,
		Topic:            topic,
		Difficulty:       difficulty,
		AntiCheatEnabled: antiCheat,
	}
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		room.Code = model.NewRoomCode()
		id, err := c.rooms.Create(ctx, nil, room)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nil, apperr.Wrap(err, apperr.RoomCreateFailed)
		}
		room.ID = id
		logger.Info(ctx, "room created",
			zap.String("room_code", room.Code),
			zap.String("host", host))
		return room, nil
	}
	return nil, apperr.New(apperr.RoomCreateFailed).WithMessage("could not allocate a unique room code")
}

func (c *Coordinator) GetRoom(ctx context.Context, roomCode string) (*model.Room, error) {
	room, err := c.rooms.GetByCode(ctx, nil, roomCode)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, apperr.New(apperr.RoomNotFound)
		}
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}
	return room, nil
}

// Join adds the user to the room. Rejoining is a no-op; new joins are only
// accepted while the room is in lobby.
func (c *Coordinator) Join(ctx context.Context, roomCode, username, passcode string) (*model.Participant, error) {
	if username == "" {
		return nil, apperr.ValidationError("username", "required")
	}
	rt := c.runtime(roomCode)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	participant, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, username)
	if err == nil {
		c.broadcastJoin(ctx, room, participant)
		return participant, nil
	}
	if !errors.Is(err, repository.ErrParticipantNotFound) {
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}

	if room.State != model.RoomStateLobby {
		return nil, apperr.New(apperr.JoinClosed)
	}
	// The host set the passcode; only everyone else has to present it.
	if room.Passcode != "" && username != room.HostUsername && passcode != room.Passcode {
		return nil, apperr.New(apperr.PasscodeMismatch)
	}

	err = c.database.Transaction(ctx, func(tx db.Transaction) error {
		if _, err := c.participants.Create(ctx, tx, &model.Participant{RoomID: room.ID, Username: username}); err != nil && !errors.Is(err, repository.ErrAlreadyJoined) {
			return err
		}
		return c.profiles.EnsureExists(ctx, tx, username)
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}

	participant, err = c.participants.GetByRoomAndUsername(ctx, nil, room.ID, username)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}
	c.broadcastJoin(ctx, room, participant)
	return participant, nil
}

func (c *Coordinator) broadcastJoin(ctx context.Context, room *model.Room, participant *model.Participant) {
	c.broadcast(ctx, room.Code, EventJoinNotify, JoinNotifyPayload{
		Username: participant.Username,
		IsHost:   participant.Username == room.HostUsername,
	})
	c.broadcastLeaderboard(ctx, room)
}

// broadcastLeaderboard pushes the current standings to the room. Snapshot
// failures are logged, not propagated; the join itself already succeeded.
func (c *Coordinator) broadcastLeaderboard(ctx context.Context, room *model.Room) {
	entries, _, err := c.snapshotLeaderboard(ctx, room)
	if err != nil {
		logger.Warn(ctx, "leaderboard snapshot failed",
			zap.String("room_code", room.Code), zap.Error(err))
		return
	}
	c.broadcast(ctx, room.Code, EventLeaderboardUpdate, LeaderboardPayload{Entries: entries})
}

// Start transitions the room to active and binds a problem if none is bound
// yet. Only the host may start. Starting an already active room is a no-op.
func (c *Coordinator) Start(ctx context.Context, roomCode, username string) error {
	rt := c.runtime(roomCode)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if username != room.HostUsername {
		return apperr.New(apperr.NotRoomHost)
	}
	switch room.State {
	case model.RoomStateActive:
		return nil
	case model.RoomStateFinished:
		return apperr.New(apperr.RoomFinished)
	}

	if room.ProblemID == nil {
		if problemID, ok := c.bindProblem(ctx, room); ok {
			room.ProblemID = &problemID
		}
	}

	if err := c.rooms.UpdateState(ctx, nil, room.ID, model.RoomStateActive); err != nil {
		return apperr.Wrap(err, apperr.DatabaseError)
	}
	room.State = model.RoomStateActive
	logger.Info(ctx, "game started", zap.String("room_code", room.Code))
	c.broadcast(ctx, room.Code, EventGameStart, GameStartPayload{RoomID: room.ID})
	return nil
}

// bindProblem tries the external source first, then the stored pool. A room
// may start unbound; run and submit will reject until a problem exists.
func (c *Coordinator) bindProblem(ctx context.Context, room *model.Room) (int64, bool) {
	if c.source != nil {
		if generated, err := c.source.Fetch(ctx, room.Topic, room.Difficulty); err == nil && generated != nil {
			id, err := c.problems.Create(ctx, nil, generated)
			if err == nil {
				if err := c.rooms.BindProblem(ctx, nil, room.ID, id); err == nil {
					return id, true
				}
			}
			logger.Warn(ctx, "storing generated problem failed", zap.Error(err))
		}
	}

	stored, err := c.problems.PickRandom(ctx, nil, room.Topic, room.Difficulty)
	if err != nil {
		if !errors.Is(err, repository.ErrProblemNotFound) {
			logger.Warn(ctx, "problem pool lookup failed", zap.Error(err))
		}
		return 0, false
	}
	if err := c.rooms.BindProblem(ctx, nil, room.ID, stored.ID); err != nil {
		logger.Warn(ctx, "binding problem failed", zap.Error(err))
		return 0, false
	}
	return stored.ID, true
}

// Run judges the code against the first test case only. It mutates nothing
// and is not counted against the submission limit.
func (c *Coordinator) Run(ctx context.Context, roomCode, username, code string) (judge.Report, error) {
	rt := c.runtime(roomCode)
	rt.mu.Lock()
	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		rt.mu.Unlock()
		return judge.Report{}, err
	}
	if !room.IsActive() {
		rt.mu.Unlock()
		return judge.Report{}, apperr.New(apperr.RoomNotActive)
	}
	problem, err := c.roomProblem(ctx, room)
	rt.mu.Unlock()
	if err != nil {
		return judge.Report{}, err
	}

	if err := c.acquireSlot(ctx); err != nil {
		return judge.Report{}, err
	}
	defer c.releaseSlot()

	cases := toJudgeCases(problem.TestCases[:1])
	return c.judge.Execute(ctx, code, toJudgeEntry(problem), cases), nil
}

// Submit judges the code against every test case and applies the match
// effects. The submission limit is enforced before judging, with in-flight
// reservations so concurrent submits cannot exceed it.
func (c *Coordinator) Submit(ctx context.Context, roomCode, username, code string) (SubmitOutcome, error) {
	rt := c.runtime(roomCode)

	rt.mu.Lock()
	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		rt.mu.Unlock()
		return SubmitOutcome{}, err
	}
	if !room.IsActive() {
		rt.mu.Unlock()
		return SubmitOutcome{}, apperr.New(apperr.RoomNotActive)
	}
	participant, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, username)
	if err != nil {
		rt.mu.Unlock()
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return SubmitOutcome{}, apperr.New(apperr.ParticipantNotFound)
		}
		return SubmitOutcome{}, apperr.Wrap(err, apperr.DatabaseError)
	}
	used, err := c.submissions.CountByParticipant(ctx, nil, participant.ID)
	if err != nil {
		rt.mu.Unlock()
		return SubmitOutcome{}, apperr.Wrap(err, apperr.DatabaseError)
	}
	used += rt.inflight[username]
	if used >= submissionLimit {
		rt.mu.Unlock()
		return SubmitOutcome{}, apperr.New(apperr.SubmissionLimitReached)
	}
	problem, err := c.roomProblem(ctx, room)
	if err != nil {
		rt.mu.Unlock()
		return SubmitOutcome{}, err
	}
	attempt := used + 1
	rt.inflight[username]++
	rt.mu.Unlock()

	release := func() {
		rt.mu.Lock()
		rt.inflight[username]--
		if rt.inflight[username] <= 0 {
			delete(rt.inflight, username)
		}
		rt.mu.Unlock()
	}

	if err := c.acquireSlot(ctx); err != nil {
		release()
		return SubmitOutcome{}, err
	}
	report := c.judge.Execute(ctx, code, toJudgeEntry(problem), toJudgeCases(problem.TestCases))
	c.releaseSlot()

	rt.mu.Lock()
	defer func() {
		rt.inflight[username]--
		if rt.inflight[username] <= 0 {
			delete(rt.inflight, username)
		}
		rt.mu.Unlock()
	}()

	outcome, err := c.applySubmission(ctx, rt, room, participant, code, attempt, report)
	if err != nil {
		return SubmitOutcome{}, err
	}
	return outcome, nil
}

// applySubmission persists the attempt and its effects, then broadcasts the
// new leaderboard and, when the last participant finishes, closes the room.
// Caller holds the room runtime lock.
func (c *Coordinator) applySubmission(ctx context.Context, rt *roomRuntime, room *model.Room, participant *model.Participant, code string, attempt int, report judge.Report) (SubmitOutcome, error) {
	// re-read inside the critical section; an earlier submit may have
	// finished this participant while we were judging
	fresh, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, participant.Username)
	if err != nil {
		return SubmitOutcome{}, apperr.Wrap(err, apperr.DatabaseError)
	}

	fullPass := report.AllPassed()
	now := time.Now()

	outputLog, err := json.Marshal(report)
	if err != nil {
		return SubmitOutcome{}, apperr.Wrap(err, apperr.InternalServerError)
	}

	err = c.database.Transaction(ctx, func(tx db.Transaction) error {
		submission := &model.Submission{
			ID:            uuid.NewString(),
			ParticipantID: fresh.ID,
			Code:          code,
			Passed:        fullPass,
			OutputLog:     string(outputLog),
			ExecutionTime: report.ElapsedSeconds,
		}
		if err := c.submissions.Create(ctx, tx, submission); err != nil {
			return err
		}

		delta := 0
		if fullPass && !fresh.Finished() {
			delta = fullPassScore
		}
		if err := c.participants.AddScore(ctx, tx, fresh.ID, delta, report.Passed); err != nil {
			return err
		}

		if fullPass && !fresh.Finished() {
			if err := c.participants.SetFinished(ctx, tx, fresh.ID, now); err != nil {
				return err
			}
			if err := c.profiles.ApplyMatchResult(ctx, tx, fresh.Username, true); err != nil {
				return err
			}
		} else if attempt >= submissionLimit && !fresh.Finished() {
			// out of attempts without a full pass: lock the participant out
			if err := c.participants.SetFinished(ctx, tx, fresh.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SubmitOutcome{}, apperr.Wrap(err, apperr.TransactionFailed)
	}

	logger.Info(ctx, "submission judged",
		zap.String("room_code", room.Code),
		zap.String("username", fresh.Username),
		zap.Int("attempt", attempt),
		zap.Bool("passed", fullPass),
		zap.Int("cases_passed", report.Passed))

	entries, participants, err := c.snapshotLeaderboard(ctx, room)
	if err != nil {
		return SubmitOutcome{}, err
	}
	c.broadcast(ctx, room.Code, EventLeaderboardUpdate, LeaderboardPayload{Entries: entries})

	if allFinished(participants) {
		c.finishRoom(ctx, rt, room, entries)
	}

	return SubmitOutcome{
		Report:       report,
		Passed:       fullPass,
		LimitReached: attempt >= submissionLimit,
	}, nil
}

// finishRoom transitions to finished and emits the terminal events exactly
// once. Caller holds the room runtime lock.
func (c *Coordinator) finishRoom(ctx context.Context, rt *roomRuntime, room *model.Room, entries []LeaderboardEntry) {
	if rt.gameOverSent {
		return
	}
	if err := c.rooms.UpdateState(ctx, nil, room.ID, model.RoomStateFinished); err != nil {
		logger.Error(ctx, "closing room failed", zap.Error(err))
		return
	}
	rt.gameOverSent = true
	room.State = model.RoomStateFinished

	c.broadcast(ctx, room.Code, EventGameOver, LeaderboardPayload{Entries: entries})

	winner := ""
	if len(entries) > 0 && entries[0].Score > 0 {
		winner = entries[0].Username
	}
	if err := c.results.PublishFinal(ctx, MatchResult{
		RoomID:     room.ID,
		RoomCode:   room.Code,
		Winner:     winner,
		FinishedAt: time.Now(),
		Entries:    entries,
	}); err != nil {
		logger.Error(ctx, "terminal result not published", zap.String("room_code", room.Code), zap.Error(err))
	}
	logger.Info(ctx, "game over", zap.String("room_code", room.Code), zap.String("winner", winner))
}

// Chat relays a participant message to the room.
func (c *Coordinator) Chat(ctx context.Context, roomCode, username, message string) error {
	if message == "" {
		return apperr.ValidationError("message", "required")
	}
	if _, err := c.GetRoom(ctx, roomCode); err != nil {
		return err
	}
	c.broadcast(ctx, roomCode, EventChatBroadcast, ChatPayload{
		Username:  username,
		Message:   message,
		Timestamp: time.Now().Format(chatTimeLayout),
	})
	return nil
}

// CheatAlert records a tab switch and shames the participant in chat. It
// never affects scoring or room state.
func (c *Coordinator) CheatAlert(ctx context.Context, roomCode, username, kind string) error {
	if kind != "tab_switch" {
		return nil
	}
	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	participant, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, username)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return apperr.New(apperr.ParticipantNotFound)
		}
		return apperr.Wrap(err, apperr.DatabaseError)
	}
	count, err := c.participants.IncrementTabSwitches(ctx, nil, participant.ID)
	if err != nil {
		return apperr.Wrap(err, apperr.DatabaseError)
	}
	logger.Info(ctx, "tab switch recorded",
		zap.String("room_code", roomCode),
		zap.String("username", username),
		zap.Int("count", count))
	c.broadcast(ctx, roomCode, EventChatBroadcast, ChatPayload{
		Username:  SystemUsername,
		Message:   "⚠ " + username + " switched tabs!",
		Timestamp: time.Now().Format(chatTimeLayout),
	})
	return nil
}

// SubmissionCode returns the target's most recent submission, gated on the
// requester having finished or the room no longer being active.
func (c *Coordinator) SubmissionCode(ctx context.Context, roomCode, requester, target string) (SubmissionCodePayload, error) {
	rt := c.runtime(roomCode)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		return SubmissionCodePayload{}, err
	}
	requesterPart, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, requester)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return SubmissionCodePayload{}, apperr.New(apperr.ParticipantNotFound)
		}
		return SubmissionCodePayload{}, apperr.Wrap(err, apperr.DatabaseError)
	}
	if room.IsActive() && !requesterPart.Finished() {
		return SubmissionCodePayload{}, apperr.New(apperr.ViewingDenied)
	}

	targetPart, err := c.participants.GetByRoomAndUsername(ctx, nil, room.ID, target)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return SubmissionCodePayload{}, apperr.New(apperr.ParticipantNotFound)
		}
		return SubmissionCodePayload{}, apperr.Wrap(err, apperr.DatabaseError)
	}
	submission, err := c.submissions.LatestByParticipant(ctx, nil, targetPart.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return SubmissionCodePayload{}, apperr.New(apperr.NoSubmission)
		}
		return SubmissionCodePayload{}, apperr.Wrap(err, apperr.DatabaseError)
	}
	return SubmissionCodePayload{
		Username:      target,
		Code:          submission.Code,
		Passed:        submission.Passed,
		ExecutionTime: submission.ExecutionTime,
	}, nil
}

// Leaderboard recomputes the current standings.
func (c *Coordinator) Leaderboard(ctx context.Context, roomCode string) ([]LeaderboardEntry, error) {
	room, err := c.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	entries, _, err := c.snapshotLeaderboard(ctx, room)
	return entries, err
}

// ListProblems returns the stored problem catalog.
func (c *Coordinator) ListProblems(ctx context.Context) ([]*model.Problem, error) {
	problems, err := c.problems.List(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}
	return problems, nil
}

func (c *Coordinator) snapshotLeaderboard(ctx context.Context, room *model.Room) ([]LeaderboardEntry, []*model.Participant, error) {
	participants, err := c.participants.ListByRoom(ctx, nil, room.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, apperr.DatabaseError)
	}

	totalCases := 0
	if room.ProblemID != nil {
		if problem, err := c.problems.GetByID(ctx, nil, *room.ProblemID); err == nil {
			totalCases = len(problem.TestCases)
		}
	}

	ratings := make(map[string]int, len(participants))
	for _, p := range participants {
		profile, err := c.profiles.GetByUsername(ctx, nil, p.Username)
		if err != nil {
			ratings[p.Username] = model.DefaultRating
			continue
		}
		ratings[p.Username] = profile.Rating
	}

	return ComputeLeaderboard(participants, room.HostUsername, totalCases, ratings), participants, nil
}

func (c *Coordinator) roomProblem(ctx context.Context, room *model.Room) (*model.Problem, error) {
	if room.ProblemID == nil {
		return nil, apperr.New(apperr.ProblemNotBound)
	}
	problem, err := c.problems.GetByID(ctx, nil, *room.ProblemID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, apperr.New(apperr.ProblemNotFound)
		}
		return nil, apperr.Wrap(err, apperr.DatabaseError)
	}
	if len(problem.TestCases) == 0 {
		return nil, apperr.New(apperr.TestCaseInvalid)
	}
	return problem, nil
}

func (c *Coordinator) acquireSlot(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperr.Wrap(ctx.Err(), apperr.Timeout)
	case <-time.After(c.slotWait):
		return apperr.New(apperr.JudgePoolFull)
	}
}

func (c *Coordinator) releaseSlot() {
	select {
	case <-c.sem:
	default:
	}
}

func (c *Coordinator) broadcast(ctx context.Context, roomCode, eventType string, data interface{}) {
	c.hub.Broadcast(ctx, roomCode, realtime.Envelope{Type: eventType, Data: data})
}

func toJudgeEntry(problem *model.Problem) judge.EntryPoint {
	return judge.EntryPoint{
		Method: problem.Entry.Method,
		Params: problem.Entry.Params,
	}
}

func toJudgeCases(cases []model.TestCase) []judge.TestCase {
	out := make([]judge.TestCase, 0, len(cases))
	for _, tc := range cases {
		out = append(out, judge.TestCase{Input: tc.Input, Expected: tc.Expected})
	}
	return out
}
