package controller

import (
	"context"

	"codearena/internal/match/model"
	"codearena/internal/match/service"
	"codearena/pkg/contextkey"
	"codearena/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoomController struct {
	coordinator *service.Coordinator
	identity    *Identity
}

func NewRoomController(coordinator *service.Coordinator, identity *Identity) *RoomController {
	return &RoomController{coordinator: coordinator, identity: identity}
}

// RegisterRoutes mounts the REST surface.
func (rc *RoomController) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms", rc.identity.Middleware())
	rooms.POST("", rc.CreateRoom)
	rooms.GET("/:code", rc.GetRoom)
	rooms.POST("/:code/join", rc.Join)
	rooms.GET("/:code/leaderboard", rc.Leaderboard)
}

type createRoomRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Passcode   string `json:"passcode"`
	AntiCheat  bool   `json:"anti_cheat"`
}

type roomView struct {
	Code       string `json:"code"`
	Host       string `json:"host"`
	State      string `json:"state"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	AntiCheat  bool   `json:"anti_cheat"`
	HasProblem bool   `json:"has_problem"`
}

func toRoomView(room *model.Room) roomView {
	return roomView{
		Code:       room.Code,
		Host:       room.HostUsername,
		State:      string(room.State),
		Topic:      room.Topic,
		Difficulty: room.Difficulty,
		AntiCheat:  room.AntiCheatEnabled,
		HasProblem: room.ProblemID != nil,
	}
}

func (rc *RoomController) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	ctx := requestContext(c)
	room, err := rc.coordinator.CreateRoom(ctx, currentUsername(c), req.Topic, req.Difficulty, req.Passcode, req.AntiCheat)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toRoomView(room))
}

func (rc *RoomController) GetRoom(c *gin.Context) {
	room, err := rc.coordinator.GetRoom(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toRoomView(room))
}

type joinRoomRequest struct {
	Passcode string `json:"passcode"`
}

func (rc *RoomController) Join(c *gin.Context) {
	var req joinRoomRequest
	_ = c.ShouldBindJSON(&req)
	ctx := requestContext(c)
	participant, err := rc.coordinator.Join(ctx, c.Param("code"), currentUsername(c), req.Passcode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"username":  participant.Username,
		"joined_at": participant.JoinedAt,
	})
}

func (rc *RoomController) Leaderboard(c *gin.Context) {
	entries, err := rc.coordinator.Leaderboard(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"entries": entries})
}

// requestContext tags the request context with the room code for log
// correlation.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if code := c.Param("code"); code != "" {
		ctx = context.WithValue(ctx, contextkey.RoomCode, code)
	}
	return ctx
}
