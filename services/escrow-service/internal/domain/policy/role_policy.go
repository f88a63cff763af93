// services/escrow-service/internal/domain/policy/role_policy.go
package policy

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

// Role is the part a principal plays on one shipment.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
	RoleCarrier  Role = "carrier"
	RoleOracle   Role = "oracle"
)

// Operation is a shipment-scoped action that needs a role.
type Operation string

const (
	OpUpdateStatus Operation = "update-status"
	OpFinalize     Operation = "finalize-shipment"
)

// RolesOf returns every role caller holds on s. One principal may hold
// several (a buyer acting as its own oracle, for instance).
func RolesOf(s models.Shipment, caller models.Principal) []Role {
	var roles []Role
	if caller == s.Buyer {
		roles = append(roles, RoleBuyer)
	}
	if caller == s.Supplier {
		roles = append(roles, RoleSupplier)
	}
	if caller == s.Carrier {
		roles = append(roles, RoleCarrier)
	}
	if caller == s.Oracle {
		roles = append(roles, RoleOracle)
	}
	return roles
}

// Table is the flat operation -> allowed roles permission table.
// The oracle-only rule for status updates and the buyer's right to finalize
// are fixed; a deployment can only widen finalize.
type Table struct {
	allowed map[Operation][]Role
}

// Default returns the fixed table plus extraFinalize roles.
func Default(extraFinalize ...Role) *Table {
	t := &Table{allowed: map[Operation][]Role{
		OpUpdateStatus: {RoleOracle},
		OpFinalize:     {RoleBuyer},
	}}
	for _, r := range extraFinalize {
		if !slices.Contains(t.allowed[OpFinalize], r) {
			t.allowed[OpFinalize] = append(t.allowed[OpFinalize], r)
		}
	}
	return t
}

// Authorize returns nil if caller holds a role allowed to run op on s,
// otherwise ErrUnauthorized.
func (t *Table) Authorize(op Operation, s models.Shipment, caller models.Principal) error {
	if caller == "" {
		return fmt.Errorf("%w: anonymous caller", domainErr.ErrUnauthorized)
	}
	allowed := t.allowed[op]
	for _, r := range RolesOf(s, caller) {
		if slices.Contains(allowed, r) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not %s shipment %d", domainErr.ErrUnauthorized, caller, op, s.ID)
}

// Allowed returns a copy of the roles permitted for op.
func (t *Table) Allowed(op Operation) []Role {
	return slices.Clone(t.allowed[op])
}

// ParseRoles turns a list of role names into roles, rejecting unknown names.
func ParseRoles(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(strings.ToLower(strings.TrimSpace(n)))
		switch r {
		case RoleBuyer, RoleSupplier, RoleCarrier, RoleOracle:
			roles = append(roles, r)
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown role %q", n)
		}
	}
	return roles, nil
}

// fileFormat is the YAML layout of a policy file:
//
//	finalize:
//	  - carrier
type fileFormat struct {
	Finalize []string `yaml:"finalize"`
}

// LoadFile reads extra finalize roles from a YAML policy file and returns
// the resulting table. Status updates stay oracle-only whatever the file says.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	roles, err := ParseRoles(f.Finalize)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return Default(roles...), nil
}
