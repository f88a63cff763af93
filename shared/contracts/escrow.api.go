package contracts

import "time"

// Escrow gRPC service. Messages travel with the JSON codec from
// shared/grpcjson, so these structs are the wire contract.
const (
	EscrowServiceName = "escrow.v1.EscrowService"

	MethodCreateShipment   = "/" + EscrowServiceName + "/CreateShipment"
	MethodUpdateStatus     = "/" + EscrowServiceName + "/UpdateStatus"
	MethodFinalizeShipment = "/" + EscrowServiceName + "/FinalizeShipment"
	MethodGetShipment      = "/" + EscrowServiceName + "/GetShipment"
	MethodBalance          = "/" + EscrowServiceName + "/Balance"

	// CallerPrincipalHeader carries the authenticated caller identity set by
	// the trusted execution environment in front of the service.
	CallerPrincipalHeader = "x-caller-principal"
)

// Shipment status wire values.
const (
	StatusCreated uint8 = 0
	StatusOnTime  uint8 = 1
	StatusDelayed uint8 = 2
)

type CreateShipmentRequest struct {
	ID           uint64 `json:"id"`
	Supplier     string `json:"supplier"`
	Carrier      string `json:"carrier"`
	Oracle       string `json:"oracle"`
	EscrowAmount uint64 `json:"escrow_amount"`
}

type CreateShipmentResponse struct {
	ID uint64 `json:"id"`
}

type UpdateStatusRequest struct {
	ID            uint64 `json:"id"`
	Status        uint8  `json:"status"`
	PenaltyAmount uint64 `json:"penalty_amount"`
}

type UpdateStatusResponse struct {
	OK bool `json:"ok"`
}

type FinalizeShipmentRequest struct {
	ID uint64 `json:"id"`
}

type FinalizeShipmentResponse struct {
	OK bool `json:"ok"`
}

type GetShipmentRequest struct {
	ID uint64 `json:"id"`
}

type Shipment struct {
	ID            uint64     `json:"id"`
	Buyer         string     `json:"buyer"`
	Supplier      string     `json:"supplier"`
	Carrier       string     `json:"carrier"`
	Oracle        string     `json:"oracle"`
	EscrowAmount  uint64     `json:"escrow_amount"`
	Status        uint8      `json:"status"`
	PenaltyAmount uint64     `json:"penalty_amount"`
	Finalized     bool       `json:"finalized"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
}

type GetShipmentResponse struct {
	Shipment Shipment `json:"shipment"`
}

type BalanceRequest struct {
	Principal string `json:"principal"`
}

type BalanceResponse struct {
	Amount uint64 `json:"amount"`
}
