package grpcServer

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/models"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/service"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

// EscrowServer adapts the settlement engine to escrow.v1.EscrowService.
// It only translates: identity from metadata, wire structs to models, domain
// errors to status codes.
type EscrowServer struct {
	service *service.EscrowService
}

func NewEscrowServer(svc *service.EscrowService) *EscrowServer {
	return &EscrowServer{service: svc}
}

var _ EscrowServiceServer = (*EscrowServer)(nil)

func (s *EscrowServer) CreateShipment(ctx context.Context, req *contracts.CreateShipmentRequest) (*contracts.CreateShipmentResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.service.CreateShipment(ctx, caller, service.CreateShipmentRequest{
		ID:           req.ID,
		Supplier:     models.Principal(req.Supplier),
		Carrier:      models.Principal(req.Carrier),
		Oracle:       models.Principal(req.Oracle),
		EscrowAmount: req.EscrowAmount,
	})
	if err != nil {
		return nil, MapError(err)
	}
	return &contracts.CreateShipmentResponse{ID: id}, nil
}

func (s *EscrowServer) UpdateStatus(ctx context.Context, req *contracts.UpdateStatusRequest) (*contracts.UpdateStatusResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := s.service.UpdateStatus(ctx, caller, req.ID, models.ShipmentStatus(req.Status), req.PenaltyAmount)
	if err != nil {
		return nil, MapError(err)
	}
	return &contracts.UpdateStatusResponse{OK: ok}, nil
}

func (s *EscrowServer) FinalizeShipment(ctx context.Context, req *contracts.FinalizeShipmentRequest) (*contracts.FinalizeShipmentResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := s.service.FinalizeShipment(ctx, caller, req.ID)
	if err != nil {
		return nil, MapError(err)
	}
	return &contracts.FinalizeShipmentResponse{OK: ok}, nil
}

func (s *EscrowServer) GetShipment(ctx context.Context, req *contracts.GetShipmentRequest) (*contracts.GetShipmentResponse, error) {
	if _, err := callerFromContext(ctx); err != nil {
		return nil, err
	}
	sh, err := s.service.GetShipment(ctx, req.ID)
	if err != nil {
		return nil, MapError(err)
	}
	return &contracts.GetShipmentResponse{Shipment: toContractShipment(sh)}, nil
}

func (s *EscrowServer) Balance(ctx context.Context, req *contracts.BalanceRequest) (*contracts.BalanceResponse, error) {
	if _, err := callerFromContext(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Principal) == "" {
		return nil, status.Error(codes.InvalidArgument, "principal is required")
	}
	amount, err := s.service.Balance(ctx, models.Principal(req.Principal))
	if err != nil {
		return nil, MapError(err)
	}
	return &contracts.BalanceResponse{Amount: amount}, nil
}

// callerFromContext reads the caller identity placed in metadata by the
// execution environment.
func callerFromContext(ctx context.Context) (models.Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing caller identity")
	}
	values := md.Get(contracts.CallerPrincipalHeader)
	if len(values) != 1 || strings.TrimSpace(values[0]) == "" {
		return "", status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return models.Principal(strings.TrimSpace(values[0])), nil
}

func toContractShipment(s models.Shipment) contracts.Shipment {
	return contracts.Shipment{
		ID:            s.ID,
		Buyer:         string(s.Buyer),
		Supplier:      string(s.Supplier),
		Carrier:       string(s.Carrier),
		Oracle:        string(s.Oracle),
		EscrowAmount:  s.EscrowAmount,
		Status:        uint8(s.Status),
		PenaltyAmount: s.PenaltyAmount,
		Finalized:     s.Finalized,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		FinalizedAt:   s.FinalizedAt,
	}
}
