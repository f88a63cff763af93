package grpcServer

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	_ "github.com/Tanmoy095/LogiSynapse-escrow/shared/grpcjson"
)

// EscrowServiceServer is the server API of escrow.v1.EscrowService.
type EscrowServiceServer interface {
	CreateShipment(context.Context, *contracts.CreateShipmentRequest) (*contracts.CreateShipmentResponse, error)
	UpdateStatus(context.Context, *contracts.UpdateStatusRequest) (*contracts.UpdateStatusResponse, error)
	FinalizeShipment(context.Context, *contracts.FinalizeShipmentRequest) (*contracts.FinalizeShipmentResponse, error)
	GetShipment(context.Context, *contracts.GetShipmentRequest) (*contracts.GetShipmentResponse, error)
	Balance(context.Context, *contracts.BalanceRequest) (*contracts.BalanceResponse, error)
}

// RegisterEscrowServiceServer registers srv on s.
func RegisterEscrowServiceServer(s grpc.ServiceRegistrar, srv EscrowServiceServer) {
	s.RegisterService(&EscrowServiceDesc, srv)
}

// unary builds a method handler that decodes Req and dispatches to call,
// going through the server interceptor chain when one is installed.
func unary[Req any, Resp any](fullMethod string, call func(EscrowServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EscrowServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EscrowServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// EscrowServiceDesc is the grpc.ServiceDesc for escrow.v1.EscrowService.
var EscrowServiceDesc = grpc.ServiceDesc{
	ServiceName: contracts.EscrowServiceName,
	HandlerType: (*EscrowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateShipment",
			Handler:    unary(contracts.MethodCreateShipment, EscrowServiceServer.CreateShipment),
		},
		{
			MethodName: "UpdateStatus",
			Handler:    unary(contracts.MethodUpdateStatus, EscrowServiceServer.UpdateStatus),
		},
		{
			MethodName: "FinalizeShipment",
			Handler:    unary(contracts.MethodFinalizeShipment, EscrowServiceServer.FinalizeShipment),
		},
		{
			MethodName: "GetShipment",
			Handler:    unary(contracts.MethodGetShipment, EscrowServiceServer.GetShipment),
		},
		{
			MethodName: "Balance",
			Handler:    unary(contracts.MethodBalance, EscrowServiceServer.Balance),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/v1/escrow.proto",
}
