package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/activities"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

const (
	TaskQueue = "SETTLEMENT_TASK_QUEUE"

	// StatusReportedSignal wakes a workflow waiting for the oracle.
	StatusReportedSignal = "status-reported"

	alreadyFinalizedKind = "AlreadyFinalized"
)

// SettleShipmentInput asks for shipment ShipmentID to be finalized on behalf
// of Caller. If the oracle has not reported yet the workflow re-checks every
// PollInterval (or on StatusReportedSignal) until ReportDeadline has passed,
// then finalizes anyway and lets the engine's unreported policy decide.
type SettleShipmentInput struct {
	ShipmentID     uint64
	Caller         string
	ReportDeadline time.Duration
	PollInterval   time.Duration
}

type SettleShipmentResult struct {
	ShipmentID     uint64
	Finalized      bool
	AlreadySettled bool
	Status         uint8
	PenaltyAmount  uint64
}

func SettleShipmentWorkflow(ctx workflow.Context, in SettleShipmentInput) (SettleShipmentResult, error) {
	retrypolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    20,
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         retrypolicy,
	})
	logger := workflow.GetLogger(ctx)
	ref := activities.ShipmentRef{ShipmentID: in.ShipmentID, Caller: in.Caller}
	result := SettleShipmentResult{ShipmentID: in.ShipmentID}

	sh, err := fetch(ctx, ref)
	if err != nil {
		return result, err
	}

	if sh.Status == contracts.StatusCreated && !sh.Finalized && in.ReportDeadline > 0 {
		poll := in.PollInterval
		if poll <= 0 {
			poll = time.Hour
		}
		deadline := workflow.Now(ctx).Add(in.ReportDeadline)
		reported := workflow.GetSignalChannel(ctx, StatusReportedSignal)

		for sh.Status == contracts.StatusCreated && !sh.Finalized && workflow.Now(ctx).Before(deadline) {
			wait := deadline.Sub(workflow.Now(ctx))
			if wait > poll {
				wait = poll
			}
			timerCtx, cancel := workflow.WithCancel(ctx)
			sel := workflow.NewSelector(ctx)
			sel.AddFuture(workflow.NewTimer(timerCtx, wait), func(workflow.Future) {})
			sel.AddReceive(reported, func(c workflow.ReceiveChannel, _ bool) {
				c.Receive(ctx, nil)
			})
			sel.Select(ctx)
			cancel()

			if sh, err = fetch(ctx, ref); err != nil {
				return result, err
			}
		}
		if sh.Status == contracts.StatusCreated {
			logger.Warn("oracle did not report before deadline", "shipment_id", in.ShipmentID)
		}
	}

	result.Status = sh.Status
	result.PenaltyAmount = sh.PenaltyAmount
	if sh.Finalized {
		result.AlreadySettled = true
		return result, nil
	}

	var ok bool
	err = workflow.ExecuteActivity(ctx, activities.FinalizeShipmentName, ref).Get(ctx, &ok)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == alreadyFinalizedKind {
			// Settled by someone else in the meantime.
			result.AlreadySettled = true
			return result, nil
		}
		return result, err
	}
	result.Finalized = ok
	logger.Info("shipment settled", "shipment_id", in.ShipmentID)
	return result, nil
}

func fetch(ctx workflow.Context, ref activities.ShipmentRef) (contracts.Shipment, error) {
	var sh contracts.Shipment
	err := workflow.ExecuteActivity(ctx, activities.GetShipmentName, ref).Get(ctx, &sh)
	return sh, err
}
