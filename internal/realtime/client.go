package realtime

import (
	"context"
	"encoding/json"
	"time"

	"codearena/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// ClientMessage is one inbound action from a connected participant.
type ClientMessage struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn drives one websocket connection: a read pump feeding actions to the
// handler and a write pump draining the subscriber's event stream.
type Conn struct {
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// ReadPump reads client messages until the connection drops or ctx is done.
// Malformed frames are skipped, not fatal.
func (c *Conn) ReadPump(ctx context.Context, handler func(ClientMessage)) {
	defer func() { _ = c.ws.Close() }()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(ctx, "websocket read failed", zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug(ctx, "skipping malformed client frame", zap.Error(err))
			continue
		}
		if msg.Action == "" {
			continue
		}
		handler(msg)
	}
}

// WritePump serializes subscriber events onto the wire and keeps the
// connection alive with pings. It returns when the event stream closes.
func (c *Conn) WritePump(ctx context.Context, sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case envelope, ok := <-sub.Events():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(envelope); err != nil {
				logger.Debug(ctx, "websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
