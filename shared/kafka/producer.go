// shared/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	skafka "github.com/segmentio/kafka-go"
)

// Header names set on every published message.
const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
)

// Writer is the part of kafka.Writer the producer needs; tests inject a fake.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Message is one event to publish. Value is encoded as JSON; Type ends up in
// the event-type header so consumers can route without decoding the body.
type Message struct {
	Key   string
	Type  string
	Value any
}

// Publisher writes events to the topic the producer was built for.
type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

type KafkaProducer struct {
	writer Writer
}

// NewKafkaProducer builds a producer for topic. Messages are hashed by key, so
// every event with one key lands on the same partition in publish order, and
// a write only returns once all in-sync replicas have it.
func NewKafkaProducer(brokerURL, topic string) *KafkaProducer {
	return NewKafkaProducerWithWriter(&skafka.Writer{
		Addr:         skafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireAll,
	})
}

func NewKafkaProducerWithWriter(w Writer) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// Publish encodes all messages first and writes them as one batch; nothing is
// written if any of them fails to encode.
func (p *KafkaProducer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := make([]skafka.Message, 0, len(msgs))
	for _, m := range msgs {
		body, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("marshal kafka value for key %q: %w", m.Key, err)
		}
		headers := []skafka.Header{{Key: HeaderContentType, Value: []byte("application/json")}}
		if m.Type != "" {
			headers = append(headers, skafka.Header{Key: HeaderEventType, Value: []byte(m.Type)})
		}
		batch = append(batch, skafka.Message{Key: []byte(m.Key), Value: body, Headers: headers})
	}
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// HeaderValue returns the value of the first header named key, or "".
func HeaderValue(m skafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
