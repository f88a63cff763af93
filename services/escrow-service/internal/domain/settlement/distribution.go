// services/escrow-service/internal/domain/settlement/distribution.go
package settlement

import (
	"fmt"
	"math/bits"
	"strings"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// SplitPolicy decides how the payout (escrow minus penalty) is shared between
// supplier and carrier. The supplier gets floor(payout*bps/10000); the carrier
// gets the rest, rounding dust included.
type SplitPolicy struct {
	SupplierBasisPoints uint32
}

func (p SplitPolicy) Validate() error {
	if p.SupplierBasisPoints > MaxBasisPoints {
		return fmt.Errorf("supplier share %d bps exceeds %d", p.SupplierBasisPoints, MaxBasisPoints)
	}
	return nil
}

// Split divides payout. The sum of the two parts is always payout.
func (p SplitPolicy) Split(payout uint64) (supplier, carrier uint64) {
	hi, lo := bits.Mul64(payout, uint64(p.SupplierBasisPoints))
	// hi < MaxBasisPoints because bps <= MaxBasisPoints, so Div64 cannot panic.
	supplier, _ = bits.Div64(hi, lo, MaxBasisPoints)
	return supplier, payout - supplier
}

// UnreportedPolicy is what finalize does when the oracle never reported.
type UnreportedPolicy string

const (
	// UnreportedRelease settles as on time with no penalty.
	UnreportedRelease UnreportedPolicy = "release"
	// UnreportedReject refuses with ErrStatusNotReported.
	UnreportedReject UnreportedPolicy = "reject"
)

// ParseUnreportedPolicy accepts "release" or "reject" in any case.
func ParseUnreportedPolicy(s string) (UnreportedPolicy, error) {
	switch p := UnreportedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case UnreportedRelease, UnreportedReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown unreported-status policy %q", s)
	}
}

// Distributor computes the settlement of a shipment. It does not move money.
type Distributor struct {
	Split      SplitPolicy
	Unreported UnreportedPolicy
}

// Distribute returns the amounts owed to each party when s is finalized.
// The penalty goes back to the buyer; the remaining payout is split.
func (d Distributor) Distribute(s models.Shipment) (models.Settlement, error) {
	penalty := s.PenaltyAmount
	switch s.Status {
	case models.StatusOnTime, models.StatusDelayed:
	case models.StatusCreated:
		if d.Unreported == UnreportedReject {
			return models.Settlement{}, fmt.Errorf("%w: shipment %d", domainErr.ErrStatusNotReported, s.ID)
		}
		penalty = 0
	default:
		return models.Settlement{}, fmt.Errorf("%w: stored status %d", domainErr.ErrInvalidStatus, s.Status)
	}
	if penalty > s.EscrowAmount {
		return models.Settlement{}, fmt.Errorf("%w: penalty %d, escrow %d", domainErr.ErrInvalidPenalty, penalty, s.EscrowAmount)
	}
	supplier, carrier := d.Split.Split(s.EscrowAmount - penalty)
	return models.Settlement{
		ShipmentID:     s.ID,
		SupplierAmount: supplier,
		CarrierAmount:  carrier,
		BuyerRefund:    penalty,
	}, nil
}
