package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/policy"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/settlement"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	sharedcfg "github.com/Tanmoy095/LogiSynapse-escrow/shared/config"
)

// Storage backends for registry and ledger.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the escrow-service configuration. Infrastructure settings come
// from the embedded CommonConfig.
type Config struct {
	sharedcfg.CommonConfig

	GRPCAddr   string `env:"ESCROW_GRPC_ADDR" envDefault:":50051"`
	Storage    string `env:"ESCROW_STORAGE" envDefault:"memory"`
	SQLitePath string `env:"ESCROW_SQLITE_PATH" envDefault:"data/escrow.db"`

	SupplierBasisPoints uint32   `env:"ESCROW_SUPPLIER_BPS" envDefault:"5000"`
	UnreportedPolicy    string   `env:"ESCROW_UNREPORTED_POLICY" envDefault:"release"`
	CustodyAccount      string   `env:"ESCROW_CUSTODY_ACCOUNT" envDefault:"escrow-custody"`
	FinalizeRoles       []string `env:"ESCROW_FINALIZE_ROLES" envSeparator:","`
	PolicyFile          string   `env:"ESCROW_POLICY_FILE"`

	AuditLogPath string        `env:"ESCROW_AUDIT_LOG"`
	LockTTL      time.Duration `env:"ESCROW_LOCK_TTL" envDefault:"30s"`
	// Zero disables the custody reconciler.
	ReconcileInterval time.Duration `env:"ESCROW_RECONCILE_INTERVAL" envDefault:"5m"`

	// OpeningBalances credits accounts at startup, e.g. "B:1000,C:50".
	// Only honoured with the memory backend.
	OpeningBalances map[string]string `env:"ESCROW_OPENING_BALANCES"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := sharedcfg.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("ESCROW_STORAGE must be memory, sqlite or postgres, got %q", c.Storage)
	}
	if err := c.Split().Validate(); err != nil {
		return fmt.Errorf("ESCROW_SUPPLIER_BPS: %w", err)
	}
	if _, err := settlement.ParseUnreportedPolicy(c.UnreportedPolicy); err != nil {
		return fmt.Errorf("ESCROW_UNREPORTED_POLICY: %w", err)
	}
	if strings.TrimSpace(c.CustodyAccount) == "" {
		return fmt.Errorf("ESCROW_CUSTODY_ACCOUNT must not be empty")
	}
	if _, err := policy.ParseRoles(c.FinalizeRoles); err != nil {
		return fmt.Errorf("ESCROW_FINALIZE_ROLES: %w", err)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("ESCROW_RECONCILE_INTERVAL must not be negative")
	}
	if _, err := c.Balances(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Split() settlement.SplitPolicy {
	return settlement.SplitPolicy{SupplierBasisPoints: c.SupplierBasisPoints}
}

func (c *Config) Unreported() settlement.UnreportedPolicy {
	p, _ := settlement.ParseUnreportedPolicy(c.UnreportedPolicy)
	return p
}

func (c *Config) Custody() models.Principal {
	return models.Principal(strings.TrimSpace(c.CustodyAccount))
}

// Permissions builds the finalize permission table. Roles from the policy
// file and from ESCROW_FINALIZE_ROLES are combined.
func (c *Config) Permissions() (*policy.Table, error) {
	roles, err := policy.ParseRoles(c.FinalizeRoles)
	if err != nil {
		return nil, err
	}
	if c.PolicyFile != "" {
		fromFile, err := policy.LoadFile(c.PolicyFile)
		if err != nil {
			return nil, err
		}
		roles = append(roles, fromFile.Allowed(policy.OpFinalize)...)
	}
	return policy.Default(roles...), nil
}

// Balances parses OpeningBalances.
func (c *Config) Balances() (map[models.Principal]uint64, error) {
	out := make(map[models.Principal]uint64, len(c.OpeningBalances))
	for account, raw := range c.OpeningBalances {
		amount, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ESCROW_OPENING_BALANCES: %s: %w", account, err)
		}
		out[models.Principal(strings.TrimSpace(account))] = amount
	}
	return out, nil
}
