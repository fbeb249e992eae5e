package enrichment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ortelius/cve-triage/model"
	"github.com/segmentio/kafka-go"
)

// Producer sends enrichment events to Kafka
type Producer struct {
	Writer *kafka.Writer
}

// NewProducer initializes a new Kafka writer for enrichment events
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// NewCompletedEvent builds the event contract for a finished batch
func NewCompletedEvent(sessionID string, rows []model.Row) CompletedEvent {
	return CompletedEvent{
		EventType:     EventCompleted,
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		SessionID:     sessionID,
		Summary:       Summarize(rows),
		Rows:          rows,
	}
}

// PublishCompleted sends an enrichment.completed event keyed by session
func (p *Producer) PublishCompleted(ctx context.Context, sessionID string, rows []model.Row) error {
	payload, err := json.Marshal(NewCompletedEvent(sessionID, rows))
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *Producer) Close() error {
	return p.Writer.Close()
}
