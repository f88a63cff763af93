package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/communications-service/internal/bridge"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

type ackRecord struct {
	tag     uint64
	outcome string
}

// fakeAcknowledger records what the worker did with each delivery.
type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (f *fakeAcknowledger) add(tag uint64, outcome string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, ackRecord{tag, outcome})
	return nil
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error { return f.add(tag, "ack") }
func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		return f.add(tag, "requeue")
	}
	return f.add(tag, "nack")
}
func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return f.add(tag, "reject") }

type fakeSender struct {
	mu   sync.Mutex
	sent []bridge.Notification
	fail map[string]bool
}

func (s *fakeSender) Send(ctx context.Context, n bridge.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[n.Recipient] {
		return errors.New("gateway unavailable")
	}
	s.sent = append(s.sent, n)
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, body any) amqp.Delivery {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: raw}
}

func TestWorkerRun(t *testing.T) {
	ack := &fakeAcknowledger{}
	sender := &fakeSender{fail: map[string]bool{"C": true}}
	w := &Worker{Name: "email", Sender: sender, Log: logger.NewNop()}

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- delivery(t, ack, 1, bridge.Notification{ShipmentID: 1, Recipient: "S"})
	deliveries <- delivery(t, ack, 2, bridge.Notification{ShipmentID: 1, Recipient: "C"})
	deliveries <- delivery(t, ack, 3, []byte("garbage"))
	close(deliveries)

	require.NoError(t, w.Run(context.Background(), deliveries))

	assert.Equal(t, []ackRecord{{1, "ack"}, {2, "requeue"}, {3, "reject"}}, ack.records)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "S", sender.sent[0].Recipient)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	w := &Worker{Name: "sms", Sender: &fakeSender{}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, make(chan amqp.Delivery)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestLogSender(t *testing.T) {
	s := LogSender{Channel: "email", Log: logger.NewNop()}
	assert.NoError(t, s.Send(context.Background(), bridge.Notification{Recipient: "B"}))
}
