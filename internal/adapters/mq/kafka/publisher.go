// Package kafka publishes finished risk reports and consumes document
// submissions.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/docrisk/internal/domain/risk"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes reports as JSON keyed by document id.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}}
}

// Publish sends one report.
func (p *Publisher) Publish(ctx context.Context, rep *risk.Report) error {
	value, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(rep.DocumentID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "band", Value: []byte(rep.Band)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish report %s: %w", rep.DocumentID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
