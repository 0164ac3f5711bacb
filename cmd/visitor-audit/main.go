// Command visitor-audit reads the domain events of the visitor service and
// writes one audit line per event.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ms-visitors/internal/config"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
)

func auditLine(evt models.DomainEvent) string {
	actor := evt.Actor
	if actor == "" {
		actor = "system"
	}
	return fmt.Sprintf("%s %s by %s at %s", evt.Name, evt.EntityID, actor, evt.OccurredAt.UTC().Format(time.RFC3339))
}

func auditHandler(logger *logger.Logger) func(topic string, evt models.DomainEvent) {
	return func(topic string, evt models.DomainEvent) {
		logger.LogKafka("AUDIT", topic, auditLine(evt))
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Dir, "visitor-audit")
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topics := kafka.Topics(cfg.Kafka.TopicPrefix)
	if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	logger.Info("APP", fmt.Sprintf("Auditing %v as %s", topics, cfg.Kafka.GroupID))
	if err := consumer.Start(ctx, auditHandler(logger)); err != nil {
		logger.Fatal("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
	logger.Info("APP", "Shutdown signal received, audit consumer stopped")
}
