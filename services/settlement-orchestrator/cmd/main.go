// settlement-orchestrator/cmd/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	escrowclient "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/client"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/activities"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/config"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/starter"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/settlement-orchestrator/internal/workflow"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/kafka"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "settlement-orchestrator: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settlement-orchestrator: build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	escrow, err := escrowclient.NewEscrowClient(cfg.EscrowAddr)
	if err != nil {
		log.Fatal("unable to create escrow client", "addr", cfg.EscrowAddr, "error", err)
	}
	defer escrow.Close()

	// The shared logger already has Temporal's key/value logger shape.
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHostPort,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("unable to create Temporal client", "host", cfg.TemporalHostPort, "error", err)
	}
	defer c.Close()
	log.Info("worker connected to Temporal", "host", cfg.TemporalHostPort)

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflow.SettleShipmentWorkflow)
	w.RegisterActivity(&activities.SettlementActivities{Escrow: escrow})
	if err := w.Start(); err != nil {
		log.Fatal("unable to start worker", "error", err)
	}
	defer w.Stop()
	log.Info("worker started", "task_queue", cfg.TaskQueue, "escrow_addr", cfg.EscrowAddr)

	if !cfg.KafkaEnabled() {
		log.Warn("kafka not configured, settlements must be started externally")
		<-ctx.Done()
		return
	}
	consumer := kafka.NewConsumer([]string{cfg.KafkaBroker}, cfg.KafkaTopic, cfg.ConsumerGroup, log)
	defer consumer.Close()
	s := starter.New(c, cfg.TaskQueue, cfg.ReportDeadline, cfg.PollInterval, log).
		WithRetryBackoff(cfg.StartRetryBackoff, cfg.StartRetryMaxBackoff)
	s.Consume(ctx, consumer)
	log.Info("settlement-orchestrator stopped")
}
