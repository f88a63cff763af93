// service/escrow.service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/policy"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/settlement"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/events"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/ledger"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/lock"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/store"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// DefaultCustodyAccount holds escrowed value between create and finalize.
const DefaultCustodyAccount models.Principal = "escrow-custody"

// Deps are the collaborators of the engine. Store, Ledger and Tx must share a
// backend so one unit of work covers registry and ledger writes.
type Deps struct {
	Store    store.ShipmentStore
	Ledger   ledger.Ledger
	Tx       txn.Manager
	Locker   lock.Locker
	Recorder events.Recorder
	Log      *logger.Logger
}

// Settings are the deployment decisions the engine runs with.
type Settings struct {
	Custody     models.Principal
	Split       settlement.SplitPolicy
	Unreported  settlement.UnreportedPolicy
	Permissions *policy.Table
}

// EscrowService is the settlement state machine. Every operation takes the
// shipment's lock, runs one unit of work and records an event after commit.
type EscrowService struct {
	store    store.ShipmentStore
	ledger   ledger.Ledger
	tx       txn.Manager
	locker   lock.Locker
	recorder events.Recorder
	log      *logger.Logger

	custody     models.Principal
	distributor settlement.Distributor
	permissions *policy.Table
	now         func() time.Time
}

// CreateShipmentRequest carries what the buyer supplies; the buyer is the
// caller.
type CreateShipmentRequest struct {
	ID           uint64
	Supplier     models.Principal
	Carrier      models.Principal
	Oracle       models.Principal
	EscrowAmount uint64
}

func NewEscrowService(deps Deps, settings Settings) (*EscrowService, error) {
	if deps.Store == nil || deps.Ledger == nil || deps.Tx == nil {
		return nil, errors.New("escrow service needs a store, a ledger and a transaction manager")
	}
	if err := settings.Split.Validate(); err != nil {
		return nil, err
	}
	if settings.Unreported == "" {
		settings.Unreported = settlement.UnreportedRelease
	}
	if _, err := settlement.ParseUnreportedPolicy(string(settings.Unreported)); err != nil {
		return nil, err
	}
	if settings.Custody == "" {
		settings.Custody = DefaultCustodyAccount
	}
	if settings.Permissions == nil {
		settings.Permissions = policy.Default()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Recorder == nil {
		deps.Recorder = events.NewMemoryRecorder()
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	return &EscrowService{
		store:    deps.Store,
		ledger:   deps.Ledger,
		tx:       deps.Tx,
		locker:   deps.Locker,
		recorder: deps.Recorder,
		log:      deps.Log.With("component", "EscrowService"),
		custody:  settings.Custody,
		distributor: settlement.Distributor{
			Split:      settings.Split,
			Unreported: settings.Unreported,
		},
		permissions: settings.Permissions,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateShipment moves the escrow from the caller to custody and registers
// the shipment with the caller as buyer.
func (s *EscrowService) CreateShipment(ctx context.Context, caller models.Principal, req CreateShipmentRequest) (uint64, error) {
	if req.EscrowAmount == 0 {
		return 0, domainErr.ErrInvalidAmount
	}
	if err := s.checkParties(req); err != nil {
		return 0, err
	}
	if caller == "" {
		return 0, fmt.Errorf("%w: anonymous caller", domainErr.ErrUnauthorized)
	}
	if caller == s.custody {
		return 0, fmt.Errorf("%w: custody account cannot fund shipments", domainErr.ErrUnauthorized)
	}

	var created models.Shipment
	err := s.withShipment(ctx, req.ID, func(txCtx context.Context) error {
		if _, err := s.store.GetShipment(txCtx, req.ID); err == nil {
			return domainErr.ErrDuplicateID
		} else if !errors.Is(err, domainErr.ErrNotFound) {
			return err
		}

		ref := reference(req.ID, "create")
		if err := s.ledger.Debit(txCtx, caller, req.EscrowAmount, ref); err != nil {
			return err
		}
		if err := s.ledger.Credit(txCtx, s.custody, req.EscrowAmount, ref); err != nil {
			return fmt.Errorf("credit custody: %w", err)
		}

		var err error
		created, err = s.store.CreateShipment(txCtx, models.Shipment{
			ID:           req.ID,
			Buyer:        caller,
			Supplier:     req.Supplier,
			Carrier:      req.Carrier,
			Oracle:       req.Oracle,
			EscrowAmount: req.EscrowAmount,
		})
		return err
	})
	if err != nil {
		s.log.Warn("create shipment rejected", "shipment_id", req.ID, "caller", caller, "error", err)
		return 0, err
	}

	s.log.Info("shipment created", "shipment_id", created.ID, "buyer", created.Buyer, "escrow_amount", created.EscrowAmount)
	s.record(ctx, s.newEvent(contracts.EventShipmentCreated, created, caller))
	return created.ID, nil
}

// UpdateStatus records the oracle's outcome and penalty. No money moves.
func (s *EscrowService) UpdateStatus(ctx context.Context, caller models.Principal, id uint64, status models.ShipmentStatus, penalty uint64) (bool, error) {
	var updated models.Shipment
	err := s.withShipment(ctx, id, func(txCtx context.Context) error {
		var err error
		updated, err = s.store.UpdateShipment(txCtx, id, func(sh *models.Shipment) error {
			if err := s.permissions.Authorize(policy.OpUpdateStatus, *sh, caller); err != nil {
				return err
			}
			if sh.Finalized {
				return domainErr.ErrAlreadyFinalized
			}
			if !status.IsOutcome() {
				return fmt.Errorf("%w: got %d", domainErr.ErrInvalidStatus, status)
			}
			if penalty > sh.EscrowAmount {
				return fmt.Errorf("%w: penalty %d, escrow %d", domainErr.ErrInvalidPenalty, penalty, sh.EscrowAmount)
			}
			sh.Status = status
			sh.PenaltyAmount = penalty
			return nil
		})
		return err
	})
	if err != nil {
		s.log.Warn("status update rejected", "shipment_id", id, "caller", caller, "error", err)
		return false, err
	}

	s.log.Info("shipment status updated", "shipment_id", id, "status", updated.Status.String(), "penalty_amount", updated.PenaltyAmount)
	s.record(ctx, s.newEvent(contracts.EventStatusUpdated, updated, caller))
	return true, nil
}

// FinalizeShipment pays out the escrow exactly once. Custody is debited and
// every party credited inside one unit of work.
func (s *EscrowService) FinalizeShipment(ctx context.Context, caller models.Principal, id uint64) (bool, error) {
	var (
		finalized models.Shipment
		result    models.Settlement
	)
	err := s.withShipment(ctx, id, func(txCtx context.Context) error {
		var err error
		finalized, err = s.store.UpdateShipment(txCtx, id, func(sh *models.Shipment) error {
			if sh.Finalized {
				return domainErr.ErrAlreadyFinalized
			}
			if err := s.permissions.Authorize(policy.OpFinalize, *sh, caller); err != nil {
				return err
			}
			settled, err := s.distributor.Distribute(*sh)
			if err != nil {
				return err
			}
			result = settled
			now := s.now()
			sh.Finalized = true
			sh.FinalizedAt = &now
			return nil
		})
		if err != nil {
			return err
		}
		return s.payOut(txCtx, finalized, result)
	})
	if err != nil {
		s.log.Warn("finalize rejected", "shipment_id", id, "caller", caller, "error", err)
		if errors.Is(err, domainErr.ErrAlreadyFinalized) {
			s.recordRejectedFinalize(ctx, id, caller)
		}
		return false, err
	}

	s.log.Info("shipment finalized",
		"shipment_id", id,
		"supplier_amount", result.SupplierAmount,
		"carrier_amount", result.CarrierAmount,
		"buyer_refund", result.BuyerRefund,
	)
	ev := s.newEvent(contracts.EventShipmentFinalized, finalized, caller)
	ev.Payout = &contracts.Distribution{
		SupplierAmount: result.SupplierAmount,
		CarrierAmount:  result.CarrierAmount,
		BuyerRefund:    result.BuyerRefund,
	}
	s.record(ctx, ev)
	return true, nil
}

// GetShipment returns the current record.
func (s *EscrowService) GetShipment(ctx context.Context, id uint64) (models.Shipment, error) {
	return s.store.GetShipment(ctx, id)
}

// Balance returns the ledger balance of account.
func (s *EscrowService) Balance(ctx context.Context, account models.Principal) (uint64, error) {
	return s.ledger.Balance(ctx, account)
}

// Deposit credits account from outside the engine (opening balances,
// operator top-ups).
func (s *EscrowService) Deposit(ctx context.Context, account models.Principal, amount uint64, reference string) error {
	if amount == 0 {
		return domainErr.ErrInvalidAmount
	}
	if account == "" || account == s.custody {
		return fmt.Errorf("%w: cannot deposit to %q", domainErr.ErrUnauthorized, account)
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.ledger.Credit(txCtx, account, amount, reference)
	})
	if err != nil {
		return err
	}
	s.log.Info("deposit credited", "account", account, "amount", amount, "reference", reference)
	return nil
}

// CustodyAccount is the account holding escrowed value.
func (s *EscrowService) CustodyAccount() models.Principal {
	return s.custody
}

func (s *EscrowService) payOut(ctx context.Context, sh models.Shipment, result models.Settlement) error {
	if result.Total() != sh.EscrowAmount {
		return fmt.Errorf("settlement of shipment %d distributes %d of %d", sh.ID, result.Total(), sh.EscrowAmount)
	}
	ref := reference(sh.ID, "finalize")
	if err := s.ledger.Debit(ctx, s.custody, sh.EscrowAmount, ref); err != nil {
		return fmt.Errorf("release custody: %w", err)
	}
	credits := []struct {
		account models.Principal
		amount  uint64
	}{
		{sh.Supplier, result.SupplierAmount},
		{sh.Carrier, result.CarrierAmount},
		{sh.Buyer, result.BuyerRefund},
	}
	for _, c := range credits {
		if c.amount == 0 {
			continue
		}
		if err := s.ledger.Credit(ctx, c.account, c.amount, ref); err != nil {
			return fmt.Errorf("credit %s: %w", c.account, err)
		}
	}
	return nil
}

// checkParties rejects parties that could never act or be paid out of
// custody.
func (s *EscrowService) checkParties(req CreateShipmentRequest) error {
	for _, p := range []struct {
		role    string
		account models.Principal
	}{
		{"supplier", req.Supplier},
		{"carrier", req.Carrier},
		{"oracle", req.Oracle},
	} {
		if p.account == "" {
			return fmt.Errorf("%w: %s is empty", domainErr.ErrInvalidParty, p.role)
		}
		if p.account == s.custody {
			return fmt.Errorf("%w: %s is the custody account", domainErr.ErrInvalidParty, p.role)
		}
	}
	return nil
}

// withShipment holds the shipment lock for the whole unit of work so calls on
// one id apply in acquisition order.
func (s *EscrowService) withShipment(ctx context.Context, id uint64, fn func(ctx context.Context) error) error {
	release, err := s.locker.Acquire(ctx, lock.ShipmentKey(id))
	if err != nil {
		return fmt.Errorf("lock shipment %d: %w", id, err)
	}
	defer release()
	return s.tx.RunInTx(ctx, fn)
}

func (s *EscrowService) recordRejectedFinalize(ctx context.Context, id uint64, caller models.Principal) {
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		s.log.Error("load shipment for audit", "shipment_id", id, "error", err)
		return
	}
	ev := s.newEvent(contracts.EventFinalizeRejected, sh, caller)
	ev.Reason = domainErr.Kind(domainErr.ErrAlreadyFinalized)
	s.record(ctx, ev)
}

// record never fails the operation: the state change has already committed.
func (s *EscrowService) record(ctx context.Context, ev contracts.SettlementEvent) {
	if err := s.recorder.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error("failed to record settlement event", "event", ev.Type, "shipment_id", ev.ShipmentID, "error", err)
	}
}

func (s *EscrowService) newEvent(t contracts.EventType, sh models.Shipment, actor models.Principal) contracts.SettlementEvent {
	return contracts.SettlementEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		ShipmentID: sh.ID,
		Actor:      string(actor),
		Buyer:      string(sh.Buyer),
		Supplier:   string(sh.Supplier),
		Carrier:    string(sh.Carrier),
		Oracle:     string(sh.Oracle),
		Escrow:     sh.EscrowAmount,
		Status:     sh.Status.String(),
		Penalty:    sh.PenaltyAmount,
		OccurredAt: s.now(),
	}
}

func reference(id uint64, action string) string {
	return fmt.Sprintf("shipment:%d:%s", id, action)
}
