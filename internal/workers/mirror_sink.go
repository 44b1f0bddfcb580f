package workers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// MirrorSink delivers one outbox event to an external store.
type MirrorSink interface {
	Name() string
	Publish(ctx context.Context, event gormModels.OutboxEvent) error
	Close() error
}

// RedisStreamSink appends events to a Redis stream with XADD.
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Publish(ctx context.Context, event gormModels.OutboxEvent) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"event_id":     strconv.FormatUint(event.ID, 10),
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
			"user_id":      event.UserID,
			"data":         string(event.Payload),
		},
	}
	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (s *RedisStreamSink) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events to a topic keyed by user so one user's events stay ordered.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, event gormModels.OutboxEvent) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: event.Payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(strconv.FormatUint(event.ID, 10))},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
