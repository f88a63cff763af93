// services/escrow-service/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

// ShipmentStore is the shipment registry. Nothing else writes shipment state.
// Writes made with a ctx from txn.Manager.RunInTx join that unit of work.
type ShipmentStore interface {
	// CreateShipment stores a new shipment in its initial state (Created,
	// penalty 0, not finalized). ErrDuplicateID if the id was ever used,
	// ErrInvalidAmount for a zero escrow.
	CreateShipment(ctx context.Context, shipment models.Shipment) (models.Shipment, error)

	// GetShipment returns the record or ErrNotFound.
	GetShipment(ctx context.Context, id uint64) (models.Shipment, error)

	// UpdateShipment loads the record, applies mutate to a copy and persists
	// it. If mutate returns an error nothing is written and the error is
	// returned as is.
	UpdateShipment(ctx context.Context, id uint64, mutate func(*models.Shipment) error) (models.Shipment, error)
}

// ErrIntegrity is returned when a mutator tried to break a registry invariant.
var ErrIntegrity = errors.New("registry integrity violation")

// newShipment normalizes a record for insertion.
func newShipment(s models.Shipment) (models.Shipment, error) {
	if s.EscrowAmount == 0 {
		return models.Shipment{}, domainErr.ErrInvalidAmount
	}
	s.Status = models.StatusCreated
	s.PenaltyAmount = 0
	s.Finalized = false
	s.FinalizedAt = nil
	s.Version = 1
	return s, nil
}

// checkTransition guards the invariants every update must keep, whatever the
// mutator did.
func checkTransition(before, after models.Shipment) error {
	switch {
	case after.ID != before.ID,
		after.Buyer != before.Buyer,
		after.Supplier != before.Supplier,
		after.Carrier != before.Carrier,
		after.Oracle != before.Oracle:
		return fmt.Errorf("%w: shipment %d parties are immutable", ErrIntegrity, before.ID)
	case after.EscrowAmount != before.EscrowAmount:
		return fmt.Errorf("%w: shipment %d escrow amount is immutable", ErrIntegrity, before.ID)
	case after.PenaltyAmount > after.EscrowAmount:
		return fmt.Errorf("%w: shipment %d penalty %d exceeds escrow %d", ErrIntegrity, before.ID, after.PenaltyAmount, after.EscrowAmount)
	case before.Finalized && !after.Finalized:
		return fmt.Errorf("%w: shipment %d cannot be un-finalized", ErrIntegrity, before.ID)
	case before.Finalized && (after.Status != before.Status || after.PenaltyAmount != before.PenaltyAmount):
		return fmt.Errorf("%w: shipment %d is finalized", ErrIntegrity, before.ID)
	}
	return nil
}

// OpenEscrow summarizes the shipments still holding funds in custody.
type OpenEscrow struct {
	Count int
	Total uint64
}

// EscrowReporter is implemented by stores that can total unsettled escrow.
type EscrowReporter interface {
	OpenEscrow(ctx context.Context) (OpenEscrow, error)
}

// ErrTotalOverflow is returned when open escrow does not fit in a uint64.
var ErrTotalOverflow = errors.New("open escrow total overflows")

func (o *OpenEscrow) add(amount uint64) error {
	sum, carry := bits.Add64(o.Total, amount, 0)
	if carry != 0 {
		return ErrTotalOverflow
	}
	o.Total = sum
	o.Count++
	return nil
}
