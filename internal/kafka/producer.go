package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
)

// EventPublisher publishes domain events. Services log failures and carry on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, evt models.DomainEvent) error
}

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Prefix string
	Logger *logger.Logger
}

// NewProducer builds a producer whose writer picks the topic per message.
func NewProducer(brokers []string, prefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Prefix: prefix, Logger: log}
}

// Publish writes one keyed message to topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishEvent routes evt to its topic, keyed by entity id.
func (p *Producer) PublishEvent(ctx context.Context, evt models.DomainEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.Name, err)
	}
	topic := TopicFor(p.Prefix, evt.Name)
	if err := p.Publish(ctx, topic, evt.EntityID, value); err != nil {
		return err
	}
	p.Logger.LogKafka("PUBLISHED", topic, fmt.Sprintf("%s %s", evt.Name, evt.EntityID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, models.DomainEvent) error { return nil }
