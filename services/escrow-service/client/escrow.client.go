// client/escrow.client.go
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/grpcjson"
)

// RemoteError is a settlement failure reported by the escrow service. It
// unwraps to the matching sentinel, so errors.Is works across the wire.
type RemoteError struct {
	Code    codes.Code
	Kind    string
	Message string
	kindErr error
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.kindErr }

func (e *RemoteError) GRPCStatus() *status.Status { return status.New(e.Code, e.Message) }

// Kind returns the settlement failure kind carried by err ("NotFound",
// "AlreadyFinalized", ...) or "" for transport and internal errors.
func Kind(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// FromStatus recovers the failure kind from the "Kind: message" prefix
// written by the server's error mapper.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	kind, _, found := strings.Cut(st.Message(), ": ")
	if !found {
		return err
	}
	sentinel := domainErr.FromKind(kind)
	if sentinel == nil {
		return err
	}
	return &RemoteError{Code: st.Code(), Kind: kind, Message: st.Message(), kindErr: sentinel}
}

// EscrowClient calls escrow.v1.EscrowService on behalf of a caller.
type EscrowClient struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// NewEscrowClient creates a client for addr. The connection is established
// lazily on the first call.
func NewEscrowClient(addr string, opts ...grpc.DialOption) (*EscrowClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create escrow service client: %w", err)
	}
	return &EscrowClient{cc: conn, conn: conn}, nil
}

// NewEscrowClientFromConn wraps an existing connection; Close is then a no-op.
func NewEscrowClientFromConn(cc grpc.ClientConnInterface) *EscrowClient {
	return &EscrowClient{cc: cc}
}

func (c *EscrowClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *EscrowClient) invoke(ctx context.Context, caller, method string, req, resp any) error {
	ctx = metadata.AppendToOutgoingContext(ctx, contracts.CallerPrincipalHeader, caller)
	if err := c.cc.Invoke(ctx, method, req, resp, grpcjson.CallOption()); err != nil {
		return FromStatus(err)
	}
	return nil
}

func (c *EscrowClient) CreateShipment(ctx context.Context, caller string, req contracts.CreateShipmentRequest) (uint64, error) {
	var resp contracts.CreateShipmentResponse
	if err := c.invoke(ctx, caller, contracts.MethodCreateShipment, &req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *EscrowClient) UpdateStatus(ctx context.Context, caller string, id uint64, newStatus uint8, penalty uint64) (bool, error) {
	req := contracts.UpdateStatusRequest{ID: id, Status: newStatus, PenaltyAmount: penalty}
	var resp contracts.UpdateStatusResponse
	if err := c.invoke(ctx, caller, contracts.MethodUpdateStatus, &req, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

func (c *EscrowClient) FinalizeShipment(ctx context.Context, caller string, id uint64) (bool, error) {
	req := contracts.FinalizeShipmentRequest{ID: id}
	var resp contracts.FinalizeShipmentResponse
	if err := c.invoke(ctx, caller, contracts.MethodFinalizeShipment, &req, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

func (c *EscrowClient) GetShipment(ctx context.Context, caller string, id uint64) (contracts.Shipment, error) {
	req := contracts.GetShipmentRequest{ID: id}
	var resp contracts.GetShipmentResponse
	if err := c.invoke(ctx, caller, contracts.MethodGetShipment, &req, &resp); err != nil {
		return contracts.Shipment{}, err
	}
	return resp.Shipment, nil
}

func (c *EscrowClient) Balance(ctx context.Context, caller, principal string) (uint64, error) {
	req := contracts.BalanceRequest{Principal: principal}
	var resp contracts.BalanceResponse
	if err := c.invoke(ctx, caller, contracts.MethodBalance, &req, &resp); err != nil {
		return 0, err
	}
	return resp.Amount, nil
}
