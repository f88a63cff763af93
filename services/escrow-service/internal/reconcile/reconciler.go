// services/escrow-service/internal/reconcile/reconciler.go

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/store"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// BalanceReader is the part of the ledger the reconciler reads.
type BalanceReader interface {
	Balance(ctx context.Context, account models.Principal) (uint64, error)
}

// Report is the outcome of one check. Custody should equal the escrow of
// every shipment that is not finalized yet.
type Report struct {
	Custody    uint64
	OpenEscrow uint64
	Open       int
	CheckedAt  time.Time
}

func (r Report) Balanced() bool { return r.Custody == r.OpenEscrow }

// Reconciler periodically compares the custody account against the
// registry. Writes in flight can make a single check disagree, so a
// mismatch is only reported as an error when it repeats.
type Reconciler struct {
	registry store.EscrowReporter
	ledger   BalanceReader
	custody  models.Principal
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time

	mismatches int
}

func NewReconciler(registry store.EscrowReporter, ledger BalanceReader, custody models.Principal, interval time.Duration, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		registry: registry,
		ledger:   ledger,
		custody:  custody,
		interval: interval,
		log:      log.With("component", "reconciler"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Check runs one comparison.
func (r *Reconciler) Check(ctx context.Context) (Report, error) {
	open, err := r.registry.OpenEscrow(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("total open escrow: %w", err)
	}
	custody, err := r.ledger.Balance(ctx, r.custody)
	if err != nil {
		return Report{}, fmt.Errorf("read custody balance: %w", err)
	}
	return Report{Custody: custody, OpenEscrow: open.Total, Open: open.Count, CheckedAt: r.now()}, nil
}

// Start runs Check every interval until ctx is done. Blocking call.
func (r *Reconciler) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Info("reconciler started", "interval", r.interval.String(), "custody", r.custody)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	rep, err := r.Check(ctx)
	if err != nil {
		r.log.Error("reconciliation failed", "error", err)
		return
	}
	if rep.Balanced() {
		if r.mismatches > 0 {
			r.log.Info("custody balanced again", "custody", rep.Custody, "open_shipments", rep.Open)
		}
		r.mismatches = 0
		return
	}
	r.mismatches++
	fields := []interface{}{
		"custody", rep.Custody,
		"open_escrow", rep.OpenEscrow,
		"open_shipments", rep.Open,
		"consecutive", r.mismatches,
	}
	if r.mismatches == 1 {
		r.log.Warn("custody does not match open escrow", fields...)
		return
	}
	r.log.Error("custody does not match open escrow", fields...)
}
