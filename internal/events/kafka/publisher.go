// Package kafka publishes ledger events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mmynk/splitwiser/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

// Publisher writes JSON-encoded events to Kafka. Each topic name is prefixed
// with the configured prefix (e.g. "splitwiser." + "obligation.settled").
type Publisher struct {
	writer *kafka.Writer
	prefix string
}

// NewPublisher returns a publisher writing to brokers.
func NewPublisher(brokers []string, prefix string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
	}
}

// Publish encodes event as JSON and writes it. Events are keyed by their
// obligation or expense id so one record's events stay ordered in a partition.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.prefix + topic,
		Key:   []byte(eventKey(event)),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func eventKey(event any) string {
	switch e := event.(type) {
	case events.ObligationSettled:
		return e.ObligationID
	case events.SettlementRequested:
		return e.ObligationID
	case events.ExpenseCreated:
		return e.ExpenseID
	default:
		return ""
	}
}
