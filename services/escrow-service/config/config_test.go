package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/policy"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/settlement"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":50051", cfg.GRPCAddr)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, settlement.SplitPolicy{SupplierBasisPoints: 5000}, cfg.Split())
	require.Equal(t, settlement.UnreportedRelease, cfg.Unreported())
	require.Equal(t, models.Principal("escrow-custody"), cfg.Custody())
	require.Equal(t, 30*time.Second, cfg.LockTTL)
	require.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	require.Equal(t, "settlement.events", cfg.KafkaTopic)

	perms, err := cfg.Permissions()
	require.NoError(t, err)
	require.Equal(t, []policy.Role{policy.RoleBuyer}, perms.Allowed(policy.OpFinalize))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ESCROW_STORAGE", "sqlite")
	t.Setenv("ESCROW_SUPPLIER_BPS", "7000")
	t.Setenv("ESCROW_UNREPORTED_POLICY", "reject")
	t.Setenv("ESCROW_FINALIZE_ROLES", "carrier")
	t.Setenv("ESCROW_OPENING_BALANCES", "B:1000,X:5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StorageSQLite, cfg.Storage)
	require.Equal(t, uint32(7000), cfg.Split().SupplierBasisPoints)
	require.Equal(t, settlement.UnreportedReject, cfg.Unreported())

	balances, err := cfg.Balances()
	require.NoError(t, err)
	require.Equal(t, map[models.Principal]uint64{"B": 1000, "X": 5}, balances)

	perms, err := cfg.Permissions()
	require.NoError(t, err)
	require.ElementsMatch(t, []policy.Role{policy.RoleBuyer, policy.RoleCarrier}, perms.Allowed(policy.OpFinalize))
}

func TestPermissionsMergePolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("finalize: [supplier]\n"), 0o600))

	cfg := &Config{FinalizeRoles: []string{"carrier"}, PolicyFile: path}
	perms, err := cfg.Permissions()
	require.NoError(t, err)
	require.ElementsMatch(t,
		[]policy.Role{policy.RoleBuyer, policy.RoleCarrier, policy.RoleSupplier},
		perms.Allowed(policy.OpFinalize))
}

func TestValidateRejectsBadSettings(t *testing.T) {
	valid := func() Config {
		return Config{Storage: StorageMemory, SupplierBasisPoints: 5000, UnreportedPolicy: "release", CustodyAccount: "escrow-custody"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage = "mongo" }},
		{"split above 100%", func(c *Config) { c.SupplierBasisPoints = 10001 }},
		{"unknown unreported policy", func(c *Config) { c.UnreportedPolicy = "hold" }},
		{"empty custody", func(c *Config) { c.CustodyAccount = " " }},
		{"unknown role", func(c *Config) { c.FinalizeRoles = []string{"admin"} }},
		{"negative reconcile interval", func(c *Config) { c.ReconcileInterval = -time.Second }},
		{"bad opening balance", func(c *Config) { c.OpeningBalances = map[string]string{"B": "-1"} }},
	}
	base := valid()
	require.NoError(t, base.Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
