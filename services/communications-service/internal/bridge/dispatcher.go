package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// Publisher puts a message body on a queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Dispatcher turns settlement events from Kafka into notification jobs on
// RabbitMQ. Handle has the shape of a kafka.Handler.
type Dispatcher struct {
	pub        Publisher
	log        *logger.Logger
	emailQueue string
	smsQueue   string
}

func NewDispatcher(pub Publisher, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{pub: pub, log: log, emailQueue: EmailQueue, smsQueue: SMSQueue}
}

// WithQueues overrides the default queue names.
func (d *Dispatcher) WithQueues(email, sms string) *Dispatcher {
	d.emailQueue = email
	d.smsQueue = sms
	return d
}

// Handle publishes the jobs for one event. Events that cannot be decoded are
// logged and dropped; retrying them would never succeed. A publish failure is
// returned so the consumer retries the whole event.
func (d *Dispatcher) Handle(ctx context.Context, key, value []byte) error {
	var ev contracts.SettlementEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		d.log.Error("bridge: undecodable settlement event", "key", string(key), "error", err)
		return nil
	}

	jobs := Jobs(ev)
	if len(jobs) == 0 {
		d.log.Debug("bridge: nothing to notify", "event", ev.Type, "shipment_id", ev.ShipmentID)
		return nil
	}
	for _, job := range jobs {
		body, err := json.Marshal(job.Notification)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		queue := d.emailQueue
		if job.SMS {
			queue = d.smsQueue
		}
		if err := d.pub.Publish(ctx, queue, body); err != nil {
			return fmt.Errorf("publish to %s: %w", queue, err)
		}
	}
	d.log.Info("bridge: notifications published", "event", ev.Type, "shipment_id", ev.ShipmentID, "jobs", len(jobs))
	return nil
}

// Job is a notification and the channel it goes out on.
type Job struct {
	Notification
	SMS bool
}

// Jobs lists the notifications an event produces. Payouts also go out by
// SMS; everything else is email only.
func Jobs(ev contracts.SettlementEvent) []Job {
	base := Notification{EventID: ev.EventID, Event: ev.Type, ShipmentID: ev.ShipmentID}
	email := func(recipient, role, msg string, amount uint64) Job {
		n := base
		n.Recipient, n.Role, n.Message, n.Amount = recipient, role, msg, amount
		return Job{Notification: n}
	}

	var jobs []Job
	switch ev.Type {
	case contracts.EventShipmentCreated:
		msg := fmt.Sprintf("shipment %d opened with %d held in escrow", ev.ShipmentID, ev.Escrow)
		for _, p := range []struct{ who, role string }{
			{ev.Supplier, "supplier"},
			{ev.Carrier, "carrier"},
			{ev.Oracle, "oracle"},
		} {
			if p.who != "" {
				jobs = append(jobs, email(p.who, p.role, msg, ev.Escrow))
			}
		}
	case contracts.EventStatusUpdated:
		if ev.Buyer != "" {
			msg := fmt.Sprintf("shipment %d reported %s, penalty %d", ev.ShipmentID, ev.Status, ev.Penalty)
			jobs = append(jobs, email(ev.Buyer, "buyer", msg, ev.Penalty))
		}
	case contracts.EventShipmentFinalized:
		if ev.Payout == nil {
			return nil
		}
		for _, p := range []struct {
			who, role string
			amount    uint64
		}{
			{ev.Supplier, "supplier", ev.Payout.SupplierAmount},
			{ev.Carrier, "carrier", ev.Payout.CarrierAmount},
			{ev.Buyer, "buyer", ev.Payout.BuyerRefund},
		} {
			if p.who == "" || p.amount == 0 {
				continue
			}
			msg := fmt.Sprintf("shipment %d settled, %d credited to you", ev.ShipmentID, p.amount)
			j := email(p.who, p.role, msg, p.amount)
			jobs = append(jobs, j)
			j.SMS = true
			jobs = append(jobs, j)
		}
	case contracts.EventFinalizeRejected:
		if ev.Actor != "" {
			msg := fmt.Sprintf("finalize of shipment %d refused: %s", ev.ShipmentID, ev.Reason)
			jobs = append(jobs, email(ev.Actor, "caller", msg, 0))
		}
	}
	return jobs
}
