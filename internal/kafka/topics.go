package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
)

// Event families. The part of an event name before the first dot selects
// the topic.
const (
	FamilyVisitor     = "visitor"
	FamilyTicketPrice = "ticket_price"
	FamilyReport      = "report"
)

// TopicFor maps an event name such as visitor.created to <prefix>.visitor.
func TopicFor(prefix, eventName string) string {
	family := eventName
	if i := strings.IndexByte(eventName, '.'); i > 0 {
		family = eventName[:i]
	}
	return prefix + "." + family
}

// Topics lists every topic the service publishes to.
func Topics(prefix string) []string {
	return []string{
		TopicFor(prefix, models.EventVisitorCreated),
		TopicFor(prefix, models.EventTicketPriceUpdated),
		TopicFor(prefix, models.EventReportGenerated),
	}
}

// EnsureTopicsExist creates missing topics through the cluster controller.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
		switch {
		case err == nil:
			log.LogKafka("TOPIC", topic, "created")
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.Debug("KAFKA", fmt.Sprintf("Topic %s already exists", topic))
		default:
			log.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
		}
	}
	return nil
}
