package grpcServer

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/client"
	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/settlement"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/ledger"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/service"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/store"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/grpcjson"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

func startServer(t *testing.T) (*client.EscrowClient, *grpc.ClientConn) {
	t.Helper()
	svc, err := service.NewEscrowService(service.Deps{
		Store:  store.NewMemoryStore(),
		Ledger: ledger.NewMemoryLedger(),
		Tx:     txn.NewMemoryManager(),
	}, service.Settings{Split: settlement.SplitPolicy{SupplierBasisPoints: 5000}})
	require.NoError(t, err)
	require.NoError(t, svc.Deposit(context.Background(), "B", 5000, "opening"))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger.NewNop())))
	RegisterEscrowServiceServer(srv, NewEscrowServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return client.NewEscrowClientFromConn(conn), conn
}

func TestEscrowServiceOverGRPC(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	id, err := c.CreateShipment(ctx, "B", contracts.CreateShipmentRequest{
		ID: 3, Supplier: "S", Carrier: "C", Oracle: "O", EscrowAmount: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3), id)

	_, err = c.UpdateStatus(ctx, "B", 3, contracts.StatusOnTime, 0)
	require.ErrorIs(t, err, domainErr.ErrUnauthorized)
	require.Equal(t, codes.PermissionDenied, status.Code(err))
	require.Equal(t, "Unauthorized", client.Kind(err))

	ok, err := c.UpdateStatus(ctx, "O", 3, contracts.StatusOnTime, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.FinalizeShipment(ctx, "B", 3)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.FinalizeShipment(ctx, "B", 3)
	require.ErrorIs(t, err, domainErr.ErrAlreadyFinalized)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	sh, err := c.GetShipment(ctx, "anyone", 3)
	require.NoError(t, err)
	require.True(t, sh.Finalized)
	require.NotNil(t, sh.FinalizedAt)
	require.Equal(t, contracts.StatusOnTime, sh.Status)

	s, err := c.Balance(ctx, "S", "S")
	require.NoError(t, err)
	cb, err := c.Balance(ctx, "C", "C")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), s+cb)
}

func TestEscrowServiceErrorCodes(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	_, err := c.CreateShipment(ctx, "B", contracts.CreateShipmentRequest{ID: 1, Supplier: "S", Carrier: "C", Oracle: "O"})
	require.ErrorIs(t, err, domainErr.ErrInvalidAmount)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.CreateShipment(ctx, "B", contracts.CreateShipmentRequest{ID: 1, Supplier: "S", Carrier: "C", Oracle: "O", EscrowAmount: 9999})
	require.ErrorIs(t, err, domainErr.ErrInsufficientFunds)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.CreateShipment(ctx, "B", contracts.CreateShipmentRequest{ID: 1, Supplier: "S", Carrier: "C", Oracle: "O", EscrowAmount: 10})
	require.NoError(t, err)
	_, err = c.CreateShipment(ctx, "B", contracts.CreateShipmentRequest{ID: 1, Supplier: "S", Carrier: "C", Oracle: "O", EscrowAmount: 10})
	require.ErrorIs(t, err, domainErr.ErrDuplicateID)
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = c.UpdateStatus(ctx, "O", 1, 7, 0)
	require.ErrorIs(t, err, domainErr.ErrInvalidStatus)
	_, err = c.UpdateStatus(ctx, "O", 1, contracts.StatusDelayed, 11)
	require.ErrorIs(t, err, domainErr.ErrInvalidPenalty)

	_, err = c.GetShipment(ctx, "B", 404)
	require.ErrorIs(t, err, domainErr.ErrNotFound)
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestEscrowServiceRequiresIdentity(t *testing.T) {
	_, conn := startServer(t)
	ctx := context.Background()

	var resp contracts.FinalizeShipmentResponse
	err := conn.Invoke(ctx, contracts.MethodFinalizeShipment, &contracts.FinalizeShipmentRequest{ID: 1}, &resp, grpcjson.CallOption())
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.Empty(t, client.Kind(err))

	c := client.NewEscrowClientFromConn(conn)
	_, err = c.Balance(ctx, "", "B")
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = c.Balance(ctx, "B", " ")
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", domainErr.ErrNotFound, codes.NotFound},
		{"wrapped unauthorized", errors.Join(errors.New("ctx"), domainErr.ErrUnauthorized), codes.PermissionDenied},
		{"duplicate", domainErr.ErrDuplicateID, codes.AlreadyExists},
		{"already finalized", domainErr.ErrAlreadyFinalized, codes.FailedPrecondition},
		{"not reported", domainErr.ErrStatusNotReported, codes.FailedPrecondition},
		{"insufficient funds", domainErr.ErrInsufficientFunds, codes.FailedPrecondition},
		{"invalid amount", domainErr.ErrInvalidAmount, codes.InvalidArgument},
		{"invalid status", domainErr.ErrInvalidStatus, codes.InvalidArgument},
		{"invalid penalty", domainErr.ErrInvalidPenalty, codes.InvalidArgument},
		{"invalid party", domainErr.ErrInvalidParty, codes.InvalidArgument},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"internal", errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := MapError(tc.err)
			require.Equal(t, tc.code, status.Code(err))
		})
	}
	require.NoError(t, MapError(nil))

	st, _ := status.FromError(MapError(errors.New("secret dsn=postgres://u:p@h")))
	require.Equal(t, "internal error", st.Message(), "internal details must not leak")
}
