package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/client"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

type stubEscrow struct {
	err error
}

func (s stubEscrow) GetShipment(ctx context.Context, caller string, id uint64) (contracts.Shipment, error) {
	if s.err != nil {
		return contracts.Shipment{}, s.err
	}
	return contracts.Shipment{ID: id, Buyer: caller}, nil
}

func (s stubEscrow) FinalizeShipment(ctx context.Context, caller string, id uint64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return true, nil
}

func runFinalize(t *testing.T, escrow EscrowAPI) error {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(&SettlementActivities{Escrow: escrow})
	_, err := env.ExecuteActivity(FinalizeShipmentName, ShipmentRef{ShipmentID: 1, Caller: "B"})
	return err
}

func TestFinalizeActivitySuccess(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(&SettlementActivities{Escrow: stubEscrow{}})

	val, err := env.ExecuteActivity(FinalizeShipmentName, ShipmentRef{ShipmentID: 1, Caller: "B"})
	require.NoError(t, err)
	var ok bool
	require.NoError(t, val.Get(&ok))
	require.True(t, ok)

	val, err = env.ExecuteActivity(GetShipmentName, ShipmentRef{ShipmentID: 4, Caller: "B"})
	require.NoError(t, err)
	var sh contracts.Shipment
	require.NoError(t, val.Get(&sh))
	require.Equal(t, uint64(4), sh.ID)
}

func TestTransportErrorsStayRetryable(t *testing.T) {
	err := runFinalize(t, stubEscrow{err: status.Error(codes.Unavailable, "connection refused")})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		require.False(t, appErr.NonRetryable())
	}
}

func TestSettlementFailuresAreNotRetryable(t *testing.T) {
	remote := client.FromStatus(status.Error(codes.FailedPrecondition, "AlreadyFinalized: shipment 1 is already finalized"))
	require.Equal(t, "AlreadyFinalized", client.Kind(remote))

	err := runFinalize(t, stubEscrow{err: remote})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.True(t, appErr.NonRetryable())
	require.Equal(t, "AlreadyFinalized", appErr.Type())
}
