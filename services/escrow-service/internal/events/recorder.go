// services/escrow-service/internal/events/recorder.go
package events

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/kafka"
)

// Recorder receives settlement events after the state change they describe
// has committed. Sinks are append-only.
type Recorder interface {
	Record(ctx context.Context, event contracts.SettlementEvent) error
}

// KafkaRecorder publishes events keyed by shipment id so one shipment's
// history stays ordered on a single partition.
type KafkaRecorder struct {
	publisher kafka.Publisher
}

func NewKafkaRecorder(p kafka.Publisher) *KafkaRecorder {
	return &KafkaRecorder{publisher: p}
}

func (r *KafkaRecorder) Record(ctx context.Context, event contracts.SettlementEvent) error {
	return r.publisher.Publish(ctx, kafka.Message{
		Key:   strconv.FormatUint(event.ShipmentID, 10),
		Type:  string(event.Type),
		Value: event,
	})
}

// MemoryRecorder keeps events in process. Used by tests and when no other
// sink is configured.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []contracts.SettlementEvent
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, event contracts.SettlementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded, oldest first.
func (r *MemoryRecorder) Events() []contracts.SettlementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]contracts.SettlementEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ByShipment returns the events of one shipment, oldest first.
func (r *MemoryRecorder) ByShipment(id uint64) []contracts.SettlementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.SettlementEvent
	for _, e := range r.events {
		if e.ShipmentID == id {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans an event out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, event contracts.SettlementEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
