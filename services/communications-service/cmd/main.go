// services/communications-service/cmd/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/communications-service/internal/bridge"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/communications-service/internal/config"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/communications-service/internal/workers"
	pkgkafka "github.com/Tanmoy095/LogiSynapse-escrow/shared/kafka"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
	pkgrabbit "github.com/Tanmoy095/LogiSynapse-escrow/shared/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "communications-service: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	log.Info("connecting to RabbitMQ", "host", cfg.RabbitMQHost)
	rabbit, err := pkgrabbit.NewClient(cfg.GetRabbitMQURL())
	if err != nil {
		return err
	}
	// Closed only after every worker has returned.
	defer func() {
		if err := rabbit.Close(); err != nil {
			log.Error("close rabbitmq", "error", err)
		}
	}()

	// Undecodable jobs are rejected by the workers and parked in <queue>.dead.
	for _, q := range []string{cfg.EmailQueue, cfg.SMSQueue} {
		if err := rabbit.CreateQueue(q + ".dead"); err != nil {
			return err
		}
		if err := rabbit.CreateQueue(q, pkgrabbit.WithDeadLetter(q+".dead")); err != nil {
			return err
		}
	}
	if err := rabbit.SetPrefetch(cfg.Prefetch); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, w := range []struct {
		queue   string
		channel string
	}{
		{cfg.EmailQueue, "email"},
		{cfg.SMSQueue, "sms"},
	} {
		deliveries, err := rabbit.Consume(w.queue)
		if err != nil {
			return fmt.Errorf("consume %s: %w", w.queue, err)
		}
		worker := &workers.Worker{
			Name:   w.channel,
			Sender: workers.LogSender{Channel: w.channel, Log: log},
			Log:    log,
		}
		g.Go(func() error { return worker.Run(gctx, deliveries) })
	}

	if cfg.KafkaEnabled() {
		log.Info("bridge listening", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
		consumer := pkgkafka.NewConsumer([]string{cfg.KafkaBroker}, cfg.KafkaTopic, cfg.ConsumerGroup, log).
			WithRetry(cfg.RetryAttempts, time.Second)
		defer consumer.Close()

		dispatcher := bridge.NewDispatcher(rabbit, log).WithQueues(cfg.EmailQueue, cfg.SMSQueue)
		g.Go(func() error {
			consumer.Start(gctx, dispatcher.Handle)
			return nil
		})
	} else {
		log.Warn("kafka not configured, bridge disabled")
	}

	log.Info("communications-service running")
	err = g.Wait()
	log.Info("communications-service stopped")
	return err
}
