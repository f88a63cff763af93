// services/escrow-service/internal/domain/errors/errors.domain.go
package errors

import "errors"

// Settlement failure kinds. Every engine operation returns either a result or
// one of these (possibly wrapped); transport maps them to status codes.
var (
	// Registry
	ErrNotFound    = errors.New("shipment not found")
	ErrDuplicateID = errors.New("shipment id already exists")

	// Validation
	ErrInvalidAmount  = errors.New("escrow amount must be greater than zero")
	ErrInvalidStatus  = errors.New("status must be ON_TIME or DELAYED")
	ErrInvalidPenalty = errors.New("penalty exceeds escrow amount")
	ErrInvalidParty   = errors.New("shipment parties must be named accounts other than custody")

	// Authorization
	ErrUnauthorized = errors.New("caller is not authorized for this shipment operation")

	// State machine
	ErrAlreadyFinalized  = errors.New("shipment is already finalized")
	ErrStatusNotReported = errors.New("oracle has not reported a delivery status")

	// Ledger
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Kind returns the stable name of the failure kind wrapped in err, or "" if
// err is not a settlement error. The name travels over the wire so clients
// can map it back with FromKind.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// FromKind is the inverse of Kind. Unknown names return nil.
func FromKind(name string) error {
	for _, k := range kinds {
		if k.name == name {
			return k.err
		}
	}
	return nil
}

var kinds = []struct {
	name string
	err  error
}{
	{"NotFound", ErrNotFound},
	{"DuplicateId", ErrDuplicateID},
	{"InvalidAmount", ErrInvalidAmount},
	{"InvalidStatus", ErrInvalidStatus},
	{"InvalidPenalty", ErrInvalidPenalty},
	{"InvalidParty", ErrInvalidParty},
	{"Unauthorized", ErrUnauthorized},
	{"AlreadyFinalized", ErrAlreadyFinalized},
	{"StatusNotReported", ErrStatusNotReported},
	{"InsufficientFunds", ErrInsufficientFunds},
}
