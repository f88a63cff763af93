package models

import "time"

// Principal is an authenticated caller identity as delivered by the execution
// environment (wallet address, service account, ...). It is compared byte for
// byte; the engine never interprets it.
type Principal string

// ShipmentStatus is the oracle-reported delivery outcome. The numeric values
// are part of the wire contract: 1 = on time, 2 = delayed.
type ShipmentStatus uint8

const (
	StatusCreated ShipmentStatus = 0
	StatusOnTime  ShipmentStatus = 1
	StatusDelayed ShipmentStatus = 2
)

// IsOutcome reports whether s is a value the oracle may report.
func (s ShipmentStatus) IsOutcome() bool {
	return s == StatusOnTime || s == StatusDelayed
}

func (s ShipmentStatus) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusOnTime:
		return "ON_TIME"
	case StatusDelayed:
		return "DELAYED"
	default:
		return "UNKNOWN"
	}
}

// Shipment is the single source of truth for one escrowed shipment.
// Buyer, Supplier, Carrier, Oracle and EscrowAmount never change after
// creation; Finalized only ever goes false -> true.
type Shipment struct {
	ID            uint64
	Buyer         Principal
	Supplier      Principal
	Carrier       Principal
	Oracle        Principal
	EscrowAmount  uint64
	Status        ShipmentStatus
	PenaltyAmount uint64
	Finalized     bool

	// Version is bumped on every successful mutation.
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
}

// Settlement is what a finalize moved out of escrow. The three amounts always
// sum to the shipment's EscrowAmount.
type Settlement struct {
	ShipmentID     uint64
	SupplierAmount uint64
	CarrierAmount  uint64
	BuyerRefund    uint64
}

// Total returns the value distributed by the settlement.
func (s Settlement) Total() uint64 {
	return s.SupplierAmount + s.CarrierAmount + s.BuyerRefund
}
