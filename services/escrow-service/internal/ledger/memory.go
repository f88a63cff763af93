package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
)

// MemoryLedger keeps balances in a map and journals every movement. Inside a
// txn.MemoryManager unit of work a debit takes the funds at once and a credit
// stays pending until commit, so no other unit of work can spend value that
// may still be rolled back.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[models.Principal]uint64
	// reserved is headroom held for pending credits and for debits that may
	// be undone. balances[a]+reserved[a] never exceeds math.MaxUint64.
	reserved map[models.Principal]uint64
	entries  []Entry
	now      func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[models.Principal]uint64),
		reserved: make(map[models.Principal]uint64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLedger) Debit(ctx context.Context, account models.Principal, amount uint64, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	if l.balances[account] < amount {
		held := l.balances[account]
		l.mu.Unlock()
		return fmt.Errorf("%w: %s holds %d, needs %d", domainErr.ErrInsufficientFunds, account, held, amount)
	}
	l.balances[account] -= amount
	l.reserved[account] += amount
	l.mu.Unlock()

	txn.OnRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.release(account, amount)
		l.balances[account] += amount
	})
	txn.OnCommit(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.release(account, amount)
		l.appendEntry(account, Debit, amount, reference)
	})
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, account models.Principal, amount uint64, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	if headroom := math.MaxUint64 - l.balances[account] - l.reserved[account]; amount > headroom {
		l.mu.Unlock()
		return fmt.Errorf("%w: crediting %d to %s", ErrAmountOutOfRange, amount, account)
	}
	l.reserved[account] += amount
	l.mu.Unlock()

	txn.OnRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.release(account, amount)
	})
	txn.OnCommit(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.release(account, amount)
		l.balances[account] += amount
		l.appendEntry(account, Credit, amount, reference)
	})
	return nil
}

func (l *MemoryLedger) Balance(ctx context.Context, account models.Principal) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Entries returns a copy of the journal lines for account, oldest first.
func (l *MemoryLedger) Entries(ctx context.Context, account models.Principal) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Account == account {
			out = append(out, e)
		}
	}
	return out, nil
}

// release must be called with l.mu held.
func (l *MemoryLedger) release(account models.Principal, amount uint64) {
	if l.reserved[account] -= amount; l.reserved[account] == 0 {
		delete(l.reserved, account)
	}
}

// appendEntry must be called with l.mu held.
func (l *MemoryLedger) appendEntry(account models.Principal, dir Direction, amount uint64, reference string) {
	l.entries = append(l.entries, Entry{
		EntryID:   uuid.NewString(),
		Account:   account,
		Direction: dir,
		Amount:    amount,
		Reference: reference,
		CreatedAt: l.now(),
	})
}
