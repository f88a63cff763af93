package contracts

import "time"

// EventType names the settlement fact carried by an event.
type EventType string

const (
	EventShipmentCreated   EventType = "shipment.created"
	EventStatusUpdated     EventType = "shipment.status_updated"
	EventShipmentFinalized EventType = "shipment.finalized"
	// EventFinalizeRejected records a refused finalize against an already
	// settled shipment so double-settlement attempts stay visible.
	EventFinalizeRejected EventType = "shipment.finalize_rejected"
)

// Distribution is the fund movement performed by a finalize.
type Distribution struct {
	SupplierAmount uint64 `json:"supplier_amount"`
	CarrierAmount  uint64 `json:"carrier_amount"`
	BuyerRefund    uint64 `json:"buyer_refund"`
}

// SettlementEvent is the single wire shape shared by the escrow-service
// (producer), the audit log and the communications-service (consumer).
type SettlementEvent struct {
	EventID    string        `json:"event_id"`
	Type       EventType     `json:"event"`
	ShipmentID uint64        `json:"shipment_id"`
	Actor      string        `json:"actor"`
	Buyer      string        `json:"buyer,omitempty"`
	Supplier   string        `json:"supplier,omitempty"`
	Carrier    string        `json:"carrier,omitempty"`
	Oracle     string        `json:"oracle,omitempty"`
	Escrow     uint64        `json:"escrow_amount,omitempty"`
	Status     string        `json:"status,omitempty"`
	Penalty    uint64        `json:"penalty_amount"`
	Payout     *Distribution `json:"distribution,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
