package activities

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/client"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

// Activity names as registered from SettlementActivities.
const (
	GetShipmentName      = "GetShipment"
	FinalizeShipmentName = "FinalizeShipment"
)

// EscrowAPI is the part of the escrow service client the activities use.
type EscrowAPI interface {
	GetShipment(ctx context.Context, caller string, id uint64) (contracts.Shipment, error)
	FinalizeShipment(ctx context.Context, caller string, id uint64) (bool, error)
}

// ShipmentRef names a shipment and the principal acting on it.
type ShipmentRef struct {
	ShipmentID uint64
	Caller     string
}

// SettlementActivities call the escrow service. Settlement failures are
// final and returned as non-retryable application errors typed with the
// failure kind; transport failures are left to the retry policy.
type SettlementActivities struct {
	Escrow EscrowAPI
}

func (a *SettlementActivities) GetShipment(ctx context.Context, ref ShipmentRef) (contracts.Shipment, error) {
	sh, err := a.Escrow.GetShipment(ctx, ref.Caller, ref.ShipmentID)
	if err != nil {
		return contracts.Shipment{}, classify(ctx, err)
	}
	return sh, nil
}

func (a *SettlementActivities) FinalizeShipment(ctx context.Context, ref ShipmentRef) (bool, error) {
	ok, err := a.Escrow.FinalizeShipment(ctx, ref.Caller, ref.ShipmentID)
	if err != nil {
		return false, classify(ctx, err)
	}
	return ok, nil
}

func classify(ctx context.Context, err error) error {
	kind := client.Kind(err)
	if kind == "" {
		activity.GetLogger(ctx).Warn("escrow call failed, will retry", "error", err)
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, err)
}
