package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
)

func shipment() models.Shipment {
	return models.Shipment{ID: 1, Buyer: "B", Supplier: "S", Carrier: "C", Oracle: "O", EscrowAmount: 1000}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		op      Operation
		caller  models.Principal
		wantErr bool
	}{
		{"oracle updates status", Default(), OpUpdateStatus, "O", false},
		{"buyer cannot update status", Default(), OpUpdateStatus, "B", true},
		{"stranger cannot update status", Default(), OpUpdateStatus, "X", true},
		{"buyer finalizes", Default(), OpFinalize, "B", false},
		{"carrier cannot finalize by default", Default(), OpFinalize, "C", true},
		{"carrier finalizes when allowed", Default(RoleCarrier), OpFinalize, "C", false},
		{"oracle-only stays oracle-only", Default(RoleBuyer, RoleCarrier), OpUpdateStatus, "C", true},
		{"anonymous caller", Default(), OpFinalize, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Authorize(tc.op, shipment(), tc.caller)
			if tc.wantErr {
				if !errors.Is(err, domainErr.ErrUnauthorized) {
					t.Fatalf("expected ErrUnauthorized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRolesOfSamePrincipal(t *testing.T) {
	s := shipment()
	s.Oracle = "B"
	require.ElementsMatch(t, []Role{RoleBuyer, RoleOracle}, RolesOf(s, "B"))
	require.Empty(t, RolesOf(s, "nobody"))
}

func TestDefaultDeduplicates(t *testing.T) {
	table := Default(RoleBuyer, RoleSupplier, RoleSupplier)
	require.Equal(t, []Role{RoleBuyer, RoleSupplier}, table.Allowed(OpFinalize))
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{" Carrier", "supplier", ""})
	require.NoError(t, err)
	require.Equal(t, []Role{RoleCarrier, RoleSupplier}, roles)

	_, err = ParseRoles([]string{"admin"})
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("finalize:\n  - carrier\n"), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, table.Authorize(OpFinalize, shipment(), "C"))
	require.NoError(t, table.Authorize(OpFinalize, shipment(), "B"))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("finalize:\n  - root\n"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
