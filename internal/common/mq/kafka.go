package mq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers      []string           `yaml:"brokers"`
	ClientID     string             `yaml:"clientID"`
	BatchSize    int                `yaml:"batchSize"`
	BatchTimeout time.Duration      `yaml:"batchTimeout"`
	DialTimeout  time.Duration      `yaml:"dialTimeout"`
	WriteTimeout time.Duration      `yaml:"writeTimeout"`
	RequiredAcks kafka.RequiredAcks `yaml:"requiredAcks"`
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	config KafkaConfig
	writer *kafka.Writer
	dialer *kafka.Dialer
}

// NewKafkaProducer creates a Kafka producer.
func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = kafka.RequireOne
	}

	dialer := &kafka.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: cfg.RequiredAcks,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, address)
			},
			ClientID: cfg.ClientID,
		},
	}

	return &KafkaProducer{
		config: cfg,
		writer: writer,
		dialer: dialer,
	}, nil
}

// Publish publishes a message to the specified topic.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, message *Message) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if message == nil {
		return errors.New("message is nil")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(message.ID),
		Value: message.Body,
		Time:  message.Timestamp,
	}
	for k, v := range message.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message failed: %w", err)
	}
	return nil
}

// Ping verifies at least one broker is reachable.
func (p *KafkaProducer) Ping(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker failed: %w", err)
	}
	return conn.Close()
}

// Close closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
