// shared/kafka/consumer.go
package kafka

import (
	"context"
	"time"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
	"github.com/segmentio/kafka-go"
)

// Reader is the subset of kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer holds the connection to the Kafka server.
type Consumer struct {
	reader     Reader
	topic      string
	groupID    string
	log        *logger.Logger
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// Handler processes one message. A failing message is retried in place with
// doubling pauses. With a bounded retry it is logged and committed after the
// last attempt so one poison message cannot stall the partition; an unbounded
// consumer keeps retrying until ctx ends and never commits past it.
type Handler func(ctx context.Context, key []byte, value []byte) error

// NewConsumer creates a group reader. groupID makes replicas split the
// partitions instead of each processing every message.
func NewConsumer(brokers []string, topic string, groupID string, log *logger.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(r, topic, groupID, log)
}

// NewConsumerWithReader allows injecting a test reader.
func NewConsumerWithReader(r Reader, topic, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Consumer{
		reader:     r,
		topic:      topic,
		groupID:    groupID,
		log:        log,
		attempts:   3,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Unbounded as the attempts of WithRetry retries a failing message until the
// consumer is stopped.
const Unbounded = 0

// WithRetry sets how often a failing message is handled before it is
// skipped, and the first pause between attempts. attempts below 1 means
// Unbounded.
func (c *Consumer) WithRetry(attempts int, backoff time.Duration) *Consumer {
	if attempts < 1 {
		attempts = Unbounded
	}
	c.attempts = attempts
	c.backoff = backoff
	return c
}

// WithMaxBackoff caps the doubling pause between attempts.
func (c *Consumer) WithMaxBackoff(d time.Duration) *Consumer {
	c.maxBackoff = d
	return c
}

// Start runs the fetch/handle/commit loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.log.Info("kafka consumer started", "topic", c.topic, "group", c.groupID)

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if err := c.handle(ctx, handler, m); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("kafka message skipped", "offset", m.Offset, "key", string(m.Key), "error", err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error("kafka commit failed", "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler Handler, m kafka.Message) error {
	pause := c.backoff
	for attempt := 1; ; attempt++ {
		processCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := handler(processCtx, m.Key, m.Value)
		cancel()
		if err == nil {
			return nil
		}
		c.log.Warn("kafka message processing failed", "offset", m.Offset, "attempt", attempt, "error", err)
		if c.attempts != Unbounded && attempt >= c.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
		if pause *= 2; c.maxBackoff > 0 && pause > c.maxBackoff {
			pause = c.maxBackoff
		}
	}
}

// Close disconnects from the server.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
