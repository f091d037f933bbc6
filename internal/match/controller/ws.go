package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"codearena/internal/match/service"
	"codearena/internal/realtime"
	"codearena/pkg/contextkey"
	apperr "codearena/pkg/errors"
	"codearena/pkg/logger"
	"codearena/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client action names on the websocket wire.
const (
	actionStart          = "start"
	actionRun            = "run"
	actionSubmit         = "submit"
	actionChat           = "chat"
	actionCheatAlert     = "cheat-alert"
	actionSubmissionCode = "get-submission-code"
)

type WSController struct {
	coordinator *service.Coordinator
	hub         *realtime.Hub
	identity    *Identity
	upgrader    websocket.Upgrader
}

func NewWSController(coordinator *service.Coordinator, hub *realtime.Hub, identity *Identity) *WSController {
	return &WSController{
		coordinator: coordinator,
		hub:         hub,
		identity:    identity,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (wc *WSController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws/rooms/:code", wc.Serve)
}

// Serve authenticates, joins the participant to the room and runs the
// connection's read and write pumps until it drops.
func (wc *WSController) Serve(c *gin.Context) {
	roomCode := c.Param("code")

	raw := bearerToken(c)
	if raw == "" {
		raw = c.Query("token")
	}
	username, err := wc.identity.Parse(raw)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	ctx := context.WithValue(c.Request.Context(), contextkey.Username, username)
	ctx = context.WithValue(ctx, contextkey.RoomCode, roomCode)

	if _, err := wc.coordinator.GetRoom(ctx, roomCode); err != nil {
		response.Error(c, err)
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(ctx, "websocket upgrade failed", zap.Error(err))
		return
	}

	sub := wc.hub.Subscribe(roomCode, username)
	defer wc.hub.Unsubscribe(roomCode, sub)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := realtime.NewConn(ws)
	go conn.WritePump(connCtx, sub)

	if _, err := wc.coordinator.Join(connCtx, roomCode, username, c.Query("passcode")); err != nil {
		wc.sendError(connCtx, sub, err)
		return
	}

	logger.Info(connCtx, "participant connected")
	conn.ReadPump(connCtx, func(msg realtime.ClientMessage) {
		wc.dispatch(connCtx, roomCode, username, sub, msg)
	})
	logger.Info(connCtx, "participant disconnected")
}

type runPayload struct {
	Code string `json:"code"`
}

type chatActionPayload struct {
	Message string `json:"message"`
}

type cheatAlertPayload struct {
	Kind string `json:"kind"`
}

type submissionCodeRequest struct {
	TargetUsername string `json:"target_username"`
}

func (wc *WSController) dispatch(ctx context.Context, roomCode, username string, sub *realtime.Subscriber, msg realtime.ClientMessage) {
	switch msg.Action {
	case actionStart:
		if err := wc.coordinator.Start(ctx, roomCode, username); err != nil {
			wc.sendError(ctx, sub, err)
		}

	case actionRun:
		var payload runPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError(ctx, sub, apperr.BadRequest("invalid run payload"))
			return
		}
		// judging blocks on the worker pool; keep the read loop responsive
		go func() {
			report, err := wc.coordinator.Run(ctx, roomCode, username, payload.Code)
			if err != nil {
				wc.sendError(ctx, sub, err)
				return
			}
			wc.hub.Send(ctx, sub, realtime.Envelope{
				Type: service.EventRunResult,
				Data: service.RunResultPayload{Report: report},
			})
		}()

	case actionSubmit:
		var payload runPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError(ctx, sub, apperr.BadRequest("invalid submit payload"))
			return
		}
		go func() {
			outcome, err := wc.coordinator.Submit(ctx, roomCode, username, payload.Code)
			if err != nil {
				wc.sendError(ctx, sub, err)
				return
			}
			wc.hub.Send(ctx, sub, realtime.Envelope{
				Type: service.EventSubmitResult,
				Data: service.SubmitResultPayload{
					Report:       outcome.Report,
					Passed:       outcome.Passed,
					LimitReached: outcome.LimitReached,
				},
			})
		}()

	case actionChat:
		var payload chatActionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError(ctx, sub, apperr.BadRequest("invalid chat payload"))
			return
		}
		if err := wc.coordinator.Chat(ctx, roomCode, username, payload.Message); err != nil {
			wc.sendError(ctx, sub, err)
		}

	case actionCheatAlert:
		var payload cheatAlertPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError(ctx, sub, apperr.BadRequest("invalid cheat-alert payload"))
			return
		}
		if err := wc.coordinator.CheatAlert(ctx, roomCode, username, payload.Kind); err != nil {
			wc.sendError(ctx, sub, err)
		}

	case actionSubmissionCode:
		var payload submissionCodeRequest
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError(ctx, sub, apperr.BadRequest("invalid request payload"))
			return
		}
		view, err := wc.coordinator.SubmissionCode(ctx, roomCode, username, payload.TargetUsername)
		if err != nil {
			wc.sendError(ctx, sub, err)
			return
		}
		wc.hub.Send(ctx, sub, realtime.Envelope{
			Type: service.EventSubmissionCode,
			Data: view,
		})

	default:
		wc.sendError(ctx, sub, apperr.BadRequest("unknown action"))
	}
}

func (wc *WSController) sendError(ctx context.Context, sub *realtime.Subscriber, err error) {
	wc.hub.Send(ctx, sub, realtime.Envelope{
		Type: service.EventError,
		Data: service.ErrorPayload{Message: errorMessage(err)},
	})
}

func errorMessage(err error) string {
	if e := apperr.GetError(err); e != nil && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
