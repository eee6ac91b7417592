package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/pkg/logger"
)

// ErrPermanent marks handler errors that retrying cannot fix. Such messages
// are committed and dropped.
var ErrPermanent = errors.New("permanent handler failure")

// Permanent wraps err so the consumer drops the message instead of retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handler accepts one decoded submission. A returned error makes the
// consumer retry the same message unless it wraps ErrPermanent.
type Handler func(ctx context.Context, s model.Submission) error

const (
	defaultMinBackoff = 100 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads submissions from a topic within a consumer group.
type Consumer struct {
	reader  messageReader
	handler Handler
	logger  logger.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewConsumer creates a consumer for topic.
func NewConsumer(brokers []string, topic, groupID string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 64 << 20,
		}),
		handler:    handler,
		logger:     logger.Get().Named("kafka-consumer"),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Run consumes until ctx ends. Malformed messages are logged and committed
// so they do not block the partition. A message whose handler keeps failing
// is retried in place; offsets are only committed in order.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		var s model.Submission
		if err := json.Unmarshal(m.Value, &s); err != nil {
			c.logger.Warn(ctx, "dropping malformed submission",
				logger.Int("partition", m.Partition),
				logger.Any("offset", m.Offset),
				logger.Error(err),
			)
			c.commit(ctx, m)
			continue
		}
		if s.DocumentID == "" && len(m.Key) > 0 {
			s.DocumentID = string(m.Key)
		}

		if !c.handle(ctx, s, m) {
			return nil
		}
		c.commit(ctx, m)
	}
}

// handle runs the handler until it succeeds or fails permanently. It
// returns false when ctx ends first, leaving the message uncommitted.
func (c *Consumer) handle(ctx context.Context, s model.Submission, m kafkago.Message) bool {
	delay := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, s)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrPermanent) {
			c.logger.Warn(ctx, "dropping rejected submission",
				logger.String("document_id", s.DocumentID),
				logger.Any("offset", m.Offset),
				logger.Error(err),
			)
			return true
		}
		c.logger.Error(ctx, "handler error, retrying",
			logger.String("document_id", s.DocumentID),
			logger.Any("offset", m.Offset),
			logger.Int("attempt", attempt),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, c.maxBackoff)
	}
}

func (c *Consumer) commit(ctx context.Context, m kafkago.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error(ctx, "commit error",
			logger.Int("partition", m.Partition),
			logger.Any("offset", m.Offset),
			logger.Error(err),
		)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
