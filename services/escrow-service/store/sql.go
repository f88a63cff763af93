package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/platform/sqldb"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
)

// ErrConcurrentUpdate means another writer changed the row between read and
// write. Only possible when UpdateShipment runs outside a unit of work.
var ErrConcurrentUpdate = errors.New("shipment was modified concurrently")

// SQLStore manages shipment rows in Postgres (lib/pq) or SQLite (modernc).
// Inside a unit of work the row is read with a lock (FOR UPDATE on Postgres);
// the UPDATE additionally compares the version it read.
type SQLStore struct {
	db  *sqldb.DB
	now func() time.Time
}

func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const shipmentColumns = `id, buyer, supplier, carrier, oracle, escrow_amount, status, penalty_amount, finalized, version, created_at, updated_at, finalized_at`

func (s *SQLStore) CreateShipment(ctx context.Context, shipment models.Shipment) (models.Shipment, error) {
	rec, err := newShipment(shipment)
	if err != nil {
		return models.Shipment{}, err
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	query := s.db.Dialect.Rebind(`
        INSERT INTO shipments (` + shipmentColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (id) DO NOTHING`)
	res, err := txn.Executor(ctx, s.db.DB).ExecContext(ctx, query,
		int64(rec.ID),
		string(rec.Buyer),
		string(rec.Supplier),
		string(rec.Carrier),
		string(rec.Oracle),
		int64(rec.EscrowAmount),
		int16(rec.Status),
		int64(rec.PenaltyAmount),
		rec.Finalized,
		rec.Version,
		rec.CreatedAt.UnixMilli(),
		rec.UpdatedAt.UnixMilli(),
		nil,
	)
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to insert shipment %d: %w", rec.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		return models.Shipment{}, domainErr.ErrDuplicateID
	}
	return rec, nil
}

func (s *SQLStore) GetShipment(ctx context.Context, id uint64) (models.Shipment, error) {
	query := s.db.Dialect.Rebind(`SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`)
	return scanShipment(txn.Executor(ctx, s.db.DB).QueryRowContext(ctx, query, int64(id)))
}

func (s *SQLStore) UpdateShipment(ctx context.Context, id uint64, mutate func(*models.Shipment) error) (models.Shipment, error) {
	exec := txn.Executor(ctx, s.db.DB)

	selectQuery := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	if txn.InTx(ctx) {
		selectQuery += s.db.Dialect.ForUpdate()
	}
	before, err := scanShipment(exec.QueryRowContext(ctx, s.db.Dialect.Rebind(selectQuery), int64(id)))
	if err != nil {
		return models.Shipment{}, err
	}
	after := before
	if err := mutate(&after); err != nil {
		return models.Shipment{}, err
	}
	if err := checkTransition(before, after); err != nil {
		return models.Shipment{}, err
	}
	after.Version = before.Version + 1
	after.UpdatedAt = s.now()

	var finalizedAt any
	if after.FinalizedAt != nil {
		finalizedAt = after.FinalizedAt.UnixMilli()
	}
	updateQuery := s.db.Dialect.Rebind(`
        UPDATE shipments
        SET status = $1, penalty_amount = $2, finalized = $3, version = $4, updated_at = $5, finalized_at = $6
        WHERE id = $7 AND version = $8`)
	res, err := exec.ExecContext(ctx, updateQuery,
		int16(after.Status),
		int64(after.PenaltyAmount),
		after.Finalized,
		after.Version,
		after.UpdatedAt.UnixMilli(),
		finalizedAt,
		int64(id),
		before.Version,
	)
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to update shipment %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return models.Shipment{}, ErrConcurrentUpdate
	}
	return after, nil
}

func scanShipment(row *sql.Row) (models.Shipment, error) {
	var (
		rec                  models.Shipment
		id, escrow, penalty  int64
		status               int16
		buyer, supplier      string
		carrier, oracle      string
		createdAt, updatedAt int64
		finalizedAt          sql.NullInt64
	)
	err := row.Scan(&id, &buyer, &supplier, &carrier, &oracle, &escrow, &status, &penalty,
		&rec.Finalized, &rec.Version, &createdAt, &updatedAt, &finalizedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shipment{}, domainErr.ErrNotFound
		}
		return models.Shipment{}, fmt.Errorf("failed to scan shipment: %w", err)
	}
	rec.ID = uint64(id)
	rec.Buyer = models.Principal(buyer)
	rec.Supplier = models.Principal(supplier)
	rec.Carrier = models.Principal(carrier)
	rec.Oracle = models.Principal(oracle)
	rec.EscrowAmount = uint64(escrow)
	rec.Status = models.ShipmentStatus(status)
	rec.PenaltyAmount = uint64(penalty)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if finalizedAt.Valid {
		t := time.UnixMilli(finalizedAt.Int64).UTC()
		rec.FinalizedAt = &t
	}
	return rec, nil
}

// OpenEscrow sums in Go; SUM over BIGINT can overflow for large escrows.
func (s *SQLStore) OpenEscrow(ctx context.Context) (OpenEscrow, error) {
	query := s.db.Dialect.Rebind(`SELECT escrow_amount FROM shipments WHERE finalized = $1`)
	rows, err := txn.Executor(ctx, s.db.DB).QueryContext(ctx, query, false)
	if err != nil {
		return OpenEscrow{}, fmt.Errorf("failed to query open escrow: %w", err)
	}
	defer rows.Close()

	var open OpenEscrow
	for rows.Next() {
		var amount int64
		if err := rows.Scan(&amount); err != nil {
			return OpenEscrow{}, fmt.Errorf("failed to scan escrow amount: %w", err)
		}
		if err := open.add(uint64(amount)); err != nil {
			return OpenEscrow{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return OpenEscrow{}, fmt.Errorf("failed to read open escrow: %w", err)
	}
	return open, nil
}
