package starter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/workflow"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/kafka"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// TemporalClient is the part of client.Client the starter uses.
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

// WorkflowID is the settlement workflow id of one shipment. Starting it again
// for a redelivered event attaches to the running execution.
func WorkflowID(shipmentID uint64) string {
	return fmt.Sprintf("settle-shipment-%d", shipmentID)
}

// Starter turns settlement events into workflow starts and signals.
type Starter struct {
	temporal       TemporalClient
	taskQueue      string
	reportDeadline time.Duration
	pollInterval   time.Duration
	retryBackoff   time.Duration
	maxBackoff     time.Duration
	log            *logger.Logger
}

func New(c TemporalClient, taskQueue string, reportDeadline, pollInterval time.Duration, log *logger.Logger) *Starter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Starter{
		temporal:       c,
		taskQueue:      taskQueue,
		reportDeadline: reportDeadline,
		pollInterval:   pollInterval,
		retryBackoff:   time.Second,
		maxBackoff:     time.Minute,
		log:            log,
	}
}

// WithRetryBackoff sets the first and the longest pause between attempts to
// handle an event that failed.
func (s *Starter) WithRetryBackoff(initial, longest time.Duration) *Starter {
	s.retryBackoff = initial
	s.maxBackoff = longest
	return s
}

// Consume feeds events from c into Handle until ctx ends. A failed workflow
// start is retried without limit: committing past a created event would leave
// its shipment without a settlement workflow.
func (s *Starter) Consume(ctx context.Context, c *kafka.Consumer) {
	c.WithRetry(kafka.Unbounded, s.retryBackoff).WithMaxBackoff(s.maxBackoff).Start(ctx, s.Handle)
}

// Handle has the shape of a kafka.Handler. A created shipment starts its
// settlement workflow on behalf of the buyer; a status update wakes it.
func (s *Starter) Handle(ctx context.Context, key, value []byte) error {
	var ev contracts.SettlementEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		s.log.Error("starter: undecodable settlement event", "key", string(key), "error", err)
		return nil
	}

	switch ev.Type {
	case contracts.EventShipmentCreated:
		return s.start(ctx, ev)
	case contracts.EventStatusUpdated:
		// The workflow also polls, so a lost signal only delays settlement.
		if err := s.temporal.SignalWorkflow(ctx, WorkflowID(ev.ShipmentID), "", workflow.StatusReportedSignal, nil); err != nil {
			s.log.Warn("starter: signal failed", "shipment_id", ev.ShipmentID, "error", err)
		}
	}
	return nil
}

func (s *Starter) start(ctx context.Context, ev contracts.SettlementEvent) error {
	if ev.Buyer == "" {
		s.log.Error("starter: created event without buyer", "shipment_id", ev.ShipmentID)
		return nil
	}
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(ev.ShipmentID),
		TaskQueue: s.taskQueue,
	}
	in := workflow.SettleShipmentInput{
		ShipmentID:     ev.ShipmentID,
		Caller:         ev.Buyer,
		ReportDeadline: s.reportDeadline,
		PollInterval:   s.pollInterval,
	}
	if _, err := s.temporal.ExecuteWorkflow(ctx, opts, workflow.SettleShipmentWorkflow, in); err != nil {
		return fmt.Errorf("start settlement of shipment %d: %w", ev.ShipmentID, err)
	}
	s.log.Info("settlement workflow started", "shipment_id", ev.ShipmentID, "workflow_id", opts.ID)
	return nil
}
