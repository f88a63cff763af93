package workers

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/communications-service/internal/bridge"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// Sender delivers one notification through a channel (email, SMS).
type Sender interface {
	Send(ctx context.Context, n bridge.Notification) error
}

// LogSender writes notifications to the log. It stands in for the mail and
// SMS gateways until those are integrated.
type LogSender struct {
	Channel string
	Log     *logger.Logger
}

func (s LogSender) Send(ctx context.Context, n bridge.Notification) error {
	s.Log.Info("notification sent",
		"channel", s.Channel,
		"recipient", n.Recipient,
		"role", n.Role,
		"shipment_id", n.ShipmentID,
		"message", n.Message,
	)
	return nil
}

// Worker drains one queue. A job is acked once sent; a job that fails to
// send is requeued; a job that cannot be decoded is rejected (dead-lettered
// when the queue has a dead-letter route).
type Worker struct {
	Name   string
	Sender Sender
	Log    *logger.Logger
}

// Run processes deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	log := w.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("worker", w.Name)
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return nil
			}
			w.process(ctx, log, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, log *logger.Logger, d amqp.Delivery) {
	var n bridge.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		log.Error("rejecting undecodable job", "error", err)
		if err := d.Reject(false); err != nil {
			log.Error("reject failed", "error", err)
		}
		return
	}
	if err := w.Sender.Send(ctx, n); err != nil {
		log.Warn("send failed, requeueing", "shipment_id", n.ShipmentID, "recipient", n.Recipient, "error", err)
		if err := d.Nack(false, true); err != nil {
			log.Error("nack failed", "error", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", "error", err)
	}
}
