// services/escrow-service/internal/ledger/models.ledger.go
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

// Direction of a money movement on one account.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// ErrAmountOutOfRange is returned by backends that store amounts in signed
// 64-bit columns when an amount or resulting balance does not fit.
var ErrAmountOutOfRange = errors.New("ledger amount out of range")

// Entry is one journal line. Entries are append-only.
type Entry struct {
	EntryID   string
	Account   models.Principal
	Direction Direction
	Amount    uint64
	Reference string // e.g. "shipment:3:finalize"
	CreatedAt time.Time
}

// Ledger is the account system the settlement engine moves money through.
// Calls made with a ctx from txn.Manager.RunInTx join that unit of work.
type Ledger interface {
	// Debit removes amount from account, or fails with
	// errors.ErrInsufficientFunds leaving the balance untouched.
	Debit(ctx context.Context, account models.Principal, amount uint64, reference string) error
	// Credit adds amount to account.
	Credit(ctx context.Context, account models.Principal, amount uint64, reference string) error
	// Balance returns the available balance; unknown accounts hold zero.
	Balance(ctx context.Context, account models.Principal) (uint64, error)
}

// Journal exposes the movement history of an account.
type Journal interface {
	Entries(ctx context.Context, account models.Principal) ([]Entry, error)
}
