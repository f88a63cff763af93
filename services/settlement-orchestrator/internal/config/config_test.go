package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "escrow-service:50051", cfg.EscrowAddr)
	require.Equal(t, "SETTLEMENT_TASK_QUEUE", cfg.TaskQueue)
	require.Equal(t, 72*time.Hour, cfg.ReportDeadline)
	require.Equal(t, time.Hour, cfg.PollInterval)
	require.Equal(t, "settlement-orchestrator", cfg.ConsumerGroup)
	require.Equal(t, time.Second, cfg.StartRetryBackoff)
	require.Equal(t, time.Minute, cfg.StartRetryMaxBackoff)
}

func TestLoadConfigRejectsZeroPollInterval(t *testing.T) {
	t.Setenv("SETTLEMENT_POLL_INTERVAL", "0s")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsInvertedStartBackoff(t *testing.T) {
	t.Setenv("SETTLEMENT_START_RETRY_BACKOFF", "2m")
	t.Setenv("SETTLEMENT_START_RETRY_MAX_BACKOFF", "1m")
	_, err := LoadConfig()
	require.Error(t, err)
}
