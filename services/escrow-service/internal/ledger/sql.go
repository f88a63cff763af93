// services/escrow-service/internal/ledger/sql.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/platform/sqldb"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
)

// SQLLedger keeps balances in ledger_accounts and journals every movement in
// ledger_entries. Amounts are limited to math.MaxInt64.
type SQLLedger struct {
	db  *sqldb.DB
	now func() time.Time
}

func NewSQLLedger(db *sqldb.DB) *SQLLedger {
	return &SQLLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (l *SQLLedger) Debit(ctx context.Context, account models.Principal, amount uint64, reference string) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("%w: debit of %d", ErrAmountOutOfRange, amount)
	}
	exec := txn.Executor(ctx, l.db.DB)
	// Conditional decrement: the row only changes if it can cover the amount.
	query := l.db.Dialect.Rebind(`
        UPDATE ledger_accounts SET balance = balance - $1
        WHERE principal = $2 AND balance >= $3`)
	res, err := exec.ExecContext(ctx, query, int64(amount), string(account), int64(amount))
	if err != nil {
		return fmt.Errorf("debit %s: %w", account, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit %s: %w", account, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s cannot cover %d", domainErr.ErrInsufficientFunds, account, amount)
	}
	return l.appendEntry(ctx, exec, account, Debit, amount, reference)
}

func (l *SQLLedger) Credit(ctx context.Context, account models.Principal, amount uint64, reference string) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("%w: credit of %d", ErrAmountOutOfRange, amount)
	}
	exec := txn.Executor(ctx, l.db.DB)
	current, err := l.balance(ctx, exec, account)
	if err != nil {
		return err
	}
	if current > math.MaxInt64-amount {
		return fmt.Errorf("%w: crediting %d to %s", ErrAmountOutOfRange, amount, account)
	}
	query := l.db.Dialect.Rebind(`
        INSERT INTO ledger_accounts (principal, balance) VALUES ($1, $2)
        ON CONFLICT (principal) DO UPDATE SET balance = ledger_accounts.balance + excluded.balance`)
	if _, err := exec.ExecContext(ctx, query, string(account), int64(amount)); err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return l.appendEntry(ctx, exec, account, Credit, amount, reference)
}

func (l *SQLLedger) Balance(ctx context.Context, account models.Principal) (uint64, error) {
	return l.balance(ctx, txn.Executor(ctx, l.db.DB), account)
}

// Entries returns the journal lines for account, oldest first.
func (l *SQLLedger) Entries(ctx context.Context, account models.Principal) ([]Entry, error) {
	query := l.db.Dialect.Rebind(`
        SELECT entry_id, principal, direction, amount, reference, created_at
        FROM ledger_entries WHERE principal = $1 ORDER BY created_at, entry_id`)
	rows, err := txn.Executor(ctx, l.db.DB).QueryContext(ctx, query, string(account))
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			principal string
			direction string
			amount    int64
			createdAt int64
		)
		if err := rows.Scan(&e.EntryID, &principal, &direction, &amount, &e.Reference, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Account = models.Principal(principal)
		e.Direction = Direction(direction)
		e.Amount = uint64(amount)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}
	return entries, nil
}

func (l *SQLLedger) balance(ctx context.Context, exec txn.DBTX, account models.Principal) (uint64, error) {
	query := l.db.Dialect.Rebind(`SELECT balance FROM ledger_accounts WHERE principal = $1`)
	var balance int64
	err := exec.QueryRowContext(ctx, query, string(account)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", account, err)
	}
	return uint64(balance), nil
}

func (l *SQLLedger) appendEntry(ctx context.Context, exec txn.DBTX, account models.Principal, dir Direction, amount uint64, reference string) error {
	query := l.db.Dialect.Rebind(`
        INSERT INTO ledger_entries (entry_id, principal, direction, amount, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`)
	_, err := exec.ExecContext(ctx, query,
		uuid.NewString(),
		string(account),
		string(dir),
		int64(amount),
		reference,
		l.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
