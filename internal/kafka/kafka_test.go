package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *scriptedReader) Close() error { return nil }

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "zoo.visitor", TopicFor("zoo", models.EventVisitorDeleted))
	assert.Equal(t, "zoo.ticket_price", TopicFor("zoo", models.EventTicketPriceUpdated))
	assert.Equal(t, "zoo.report", TopicFor("zoo", models.EventReportGenerated))
	assert.Equal(t, []string{"zoo.visitor", "zoo.ticket_price", "zoo.report"}, Topics("zoo"))
}

func TestProducer_PublishEventRoutesAndKeys(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Prefix: "zoo", Logger: logger.NewNop()}

	evt := models.DomainEvent{ID: "e1", Name: models.EventVisitorCreated, EntityID: "v1", Actor: "keeper", OccurredAt: time.Now().UTC()}
	require.NoError(t, p.PublishEvent(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "zoo.visitor", w.msgs[0].Topic)
	assert.Equal(t, "v1", string(w.msgs[0].Key))

	var decoded models.DomainEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventVisitorCreated, decoded.Name)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{Writer: &recordingWriter{err: errors.New("broker down")}, Prefix: "zoo", Logger: logger.NewNop()}
	err := p.PublishEvent(context.Background(), models.DomainEvent{Name: models.EventReportGenerated, EntityID: "r1"})
	assert.ErrorContains(t, err, "zoo.report")
}

func TestConsumer_SkipsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, _ := json.Marshal(models.DomainEvent{Name: models.EventVisitorUpdated, EntityID: "v9"})
	reader := &scriptedReader{cancel: cancel, msgs: []kafka.Message{
		{Topic: "zoo.visitor", Value: []byte("not json")},
		{Topic: "zoo.visitor", Value: good},
	}}

	var got []models.DomainEvent
	c := NewConsumerWithReader(reader, logger.NewNop())
	require.NoError(t, c.Start(ctx, func(topic string, evt models.DomainEvent) {
		got = append(got, evt)
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "v9", got[0].EntityID)
}
