package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	skafka "github.com/segmentio/kafka-go"
)

// fakeWriter is a test writer that records messages written.
type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)
	err := p.Publish(context.Background(), Message{
		Key:   "1",
		Type:  "shipment.finalized",
		Value: map[string]string{"event": "shipment.finalized"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.msgs))
	}
	m := fw.msgs[0]
	if string(m.Key) != "1" {
		t.Errorf("expected key 1, got %q", m.Key)
	}
	if got := HeaderValue(m, HeaderEventType); got != "shipment.finalized" {
		t.Errorf("event-type header = %q", got)
	}
	if got := HeaderValue(m, HeaderContentType); got != "application/json" {
		t.Errorf("content-type header = %q", got)
	}
	var decoded map[string]string
	if err := json.Unmarshal(m.Value, &decoded); err != nil {
		t.Fatalf("value is not json: %v", err)
	}
	if decoded["event"] != "shipment.finalized" {
		t.Errorf("unexpected payload %v", decoded)
	}
}

func TestPublishBatchAndUntyped(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)
	err := p.Publish(context.Background(),
		Message{Key: "2", Value: 1},
		Message{Key: "2", Type: "shipment.created", Value: 2},
	)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(fw.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fw.msgs))
	}
	if got := HeaderValue(fw.msgs[0], HeaderEventType); got != "" {
		t.Errorf("untyped message should carry no event-type, got %q", got)
	}

	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("empty publish: %v", err)
	}
	if len(fw.msgs) != 2 {
		t.Fatalf("empty publish must not write, got %d messages", len(fw.msgs))
	}
}

func TestPublishWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaProducerWithWriter(&fakeWriter{err: boom})
	err := p.Publish(context.Background(), Message{Key: "k", Value: "v"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestPublishMarshalErrorWritesNothing(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)
	err := p.Publish(context.Background(),
		Message{Key: "ok", Value: "fine"},
		Message{Key: "bad", Value: make(chan int)},
	)
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if len(fw.msgs) != 0 {
		t.Fatalf("nothing should be written on marshal error, got %d", len(fw.msgs))
	}
}
