// Package realtime fans events out to websocket subscribers grouped by room.
package realtime

import (
	"context"
	"sync"

	"codearena/pkg/logger"

	"go.uber.org/zap"
)

// Envelope is one event on the wire.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Subscriber receives events for one connection. Events are dropped rather
// than block the room when the buffer is full.
type Subscriber struct {
	username string
	events   chan Envelope

	mu     sync.Mutex
	closed bool
}

func (s *Subscriber) Username() string {
	return s.username
}

// Events is the stream the write pump drains. It is closed on unsubscribe.
func (s *Subscriber) Events() <-chan Envelope {
	return s.events
}

// trySend reports whether the envelope was delivered and whether the stream
// is still open. Senders may outlive the connection, so the closed check and
// the send share the subscriber lock.
func (s *Subscriber) trySend(envelope Envelope) (delivered, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	select {
	case s.events <- envelope:
		return true, true
	default:
		return false, true
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

const defaultSubscriberBuffer = 32

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		buffer: defaultSubscriberBuffer,
	}
}

func (h *Hub) Subscribe(roomCode, username string) *Subscriber {
	sub := &Subscriber{
		username: username,
		events:   make(chan Envelope, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*Subscriber]struct{})
	}
	h.rooms[roomCode][sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(roomCode string, sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if subs, ok := h.rooms[roomCode]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Broadcast delivers the envelope to every subscriber of the room. Delivery
// is at most once; a subscriber with a full buffer misses the event.
func (h *Hub) Broadcast(ctx context.Context, roomCode string, envelope Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[roomCode] {
		if delivered, open := sub.trySend(envelope); !delivered && open {
			logger.Warn(ctx, "subscriber buffer full, event dropped",
				zap.String("room_code", roomCode),
				zap.String("username", sub.username),
				zap.String("event_type", envelope.Type))
		}
	}
}

// Send delivers the envelope to a single subscriber, same at-most-once rule.
func (h *Hub) Send(ctx context.Context, sub *Subscriber, envelope Envelope) {
	if sub == nil {
		return
	}
	if delivered, open := sub.trySend(envelope); !delivered && open {
		logger.Warn(ctx, "subscriber buffer full, event dropped",
			zap.String("username", sub.username),
			zap.String("event_type", envelope.Type))
	}
}

// RoomSize reports the number of connected subscribers in a room.
func (h *Hub) RoomSize(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
