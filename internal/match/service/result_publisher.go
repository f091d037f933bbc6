package service

import (
	"context"
	"encoding/json"
	"time"

	"codearena/internal/common/mq"
	"codearena/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultResultTopic carries the terminal room result for external
// consumers (rating dashboards, archival).
const DefaultResultTopic = "match.result.final"

// MatchResult is the terminal event for one room, published exactly once
// when the room transitions to finished.
type MatchResult struct {
	RoomID     int64              `json:"room_id"`
	RoomCode   string             `json:"room_code"`
	Winner     string             `json:"winner,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
	Entries    []LeaderboardEntry `json:"entries"`
}

type ResultPublisher interface {
	PublishFinal(ctx context.Context, result MatchResult) error
}

type KafkaResultPublisher struct {
	producer mq.Producer
	topic    string
}

func NewKafkaResultPublisher(producer mq.Producer, topic string) *KafkaResultPublisher {
	if topic == "" {
		topic = DefaultResultTopic
	}
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishFinal(ctx context.Context, result MatchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	message := mq.NewMessage(payload)
	message.ID = uuid.NewString()
	message.SetHeader("room_code", result.RoomCode)

	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		logger.Error(ctx, "publish final match result failed",
			zap.String("room_code", result.RoomCode),
			zap.Error(err))
		return err
	}
	return nil
}

// NopResultPublisher drops results. Used when the broker is not configured.
type NopResultPublisher struct{}

func (NopResultPublisher) PublishFinal(context.Context, MatchResult) error { return nil }
