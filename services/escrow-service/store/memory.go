package store

import (
	"context"
	"sync"
	"time"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
)

// MemoryStore keeps shipments in a map. Pair it with txn.MemoryManager so
// failed units of work are undone.
type MemoryStore struct {
	shipments map[uint64]models.Shipment
	mu        sync.RWMutex
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shipments: make(map[uint64]models.Shipment),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateShipment(ctx context.Context, shipment models.Shipment) (models.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return models.Shipment{}, err
	}
	rec, err := newShipment(shipment)
	if err != nil {
		return models.Shipment{}, err
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shipments[rec.ID]; exists {
		return models.Shipment{}, domainErr.ErrDuplicateID
	}
	s.shipments[rec.ID] = rec
	txn.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.shipments, rec.ID)
		s.mu.Unlock()
	})
	return rec, nil
}

func (s *MemoryStore) GetShipment(ctx context.Context, id uint64) (models.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return models.Shipment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.shipments[id]
	if !ok {
		return models.Shipment{}, domainErr.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) UpdateShipment(ctx context.Context, id uint64, mutate func(*models.Shipment) error) (models.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return models.Shipment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.shipments[id]
	if !ok {
		return models.Shipment{}, domainErr.ErrNotFound
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
	s.shipments[id] = after
	txn.OnRollback(ctx, func() {
		s.mu.Lock()
		s.shipments[id] = before
		s.mu.Unlock()
	})
	return after, nil
}

func (s *MemoryStore) OpenEscrow(ctx context.Context) (OpenEscrow, error) {
	if err := ctx.Err(); err != nil {
		return OpenEscrow{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open OpenEscrow
	for _, rec := range s.shipments {
		if rec.Finalized {
			continue
		}
		if err := open.add(rec.EscrowAmount); err != nil {
			return OpenEscrow{}, err
		}
	}
	return open, nil
}
