package config

import (
	"fmt"
	"time"

	sharedcfg "github.com/Tanmoy095/LogiSynapse-escrow/shared/config"
)

// Config for the settlement-orchestrator worker.
type Config struct {
	sharedcfg.CommonConfig

	EscrowAddr     string        `env:"ESCROW_ADDR" envDefault:"escrow-service:50051"`
	TaskQueue      string        `env:"SETTLEMENT_TASK_QUEUE" envDefault:"SETTLEMENT_TASK_QUEUE"`
	ReportDeadline time.Duration `env:"SETTLEMENT_REPORT_DEADLINE" envDefault:"72h"`
	PollInterval   time.Duration `env:"SETTLEMENT_POLL_INTERVAL" envDefault:"1h"`
	// Consumer group for the settlement events that start workflows.
	ConsumerGroup string `env:"SETTLEMENT_CONSUMER_GROUP" envDefault:"settlement-orchestrator"`
	// Pauses between attempts to start a workflow while Temporal is down.
	StartRetryBackoff    time.Duration `env:"SETTLEMENT_START_RETRY_BACKOFF" envDefault:"1s"`
	StartRetryMaxBackoff time.Duration `env:"SETTLEMENT_START_RETRY_MAX_BACKOFF" envDefault:"1m"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := sharedcfg.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.EscrowAddr == "" {
		return nil, fmt.Errorf("ESCROW_ADDR must not be empty")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("SETTLEMENT_POLL_INTERVAL must be positive")
	}
	if cfg.StartRetryBackoff <= 0 || cfg.StartRetryMaxBackoff < cfg.StartRetryBackoff {
		return nil, fmt.Errorf("SETTLEMENT_START_RETRY_BACKOFF must be positive and not above SETTLEMENT_START_RETRY_MAX_BACKOFF")
	}
	return &cfg, nil
}
