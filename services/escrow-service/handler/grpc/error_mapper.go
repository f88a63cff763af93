package grpcServer

import (
	"context"
	stdErrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainErr "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/errors"
)

// MapError turns an engine error into a gRPC status. Settlement failures
// keep their kind as the message prefix ("AlreadyFinalized: ...") so clients
// can recover the sentinel; anything else is reported as internal without
// details.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if kind := domainErr.Kind(err); kind != "" {
		return status.Error(codeFor(err), kind+": "+err.Error())
	}
	switch {
	case stdErrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	return status.Error(codes.Internal, "internal error")
}

func codeFor(err error) codes.Code {
	switch {
	case stdErrors.Is(err, domainErr.ErrNotFound):
		return codes.NotFound
	case stdErrors.Is(err, domainErr.ErrUnauthorized):
		return codes.PermissionDenied
	case stdErrors.Is(err, domainErr.ErrDuplicateID):
		return codes.AlreadyExists
	case stdErrors.Is(err, domainErr.ErrAlreadyFinalized),
		stdErrors.Is(err, domainErr.ErrStatusNotReported),
		stdErrors.Is(err, domainErr.ErrInsufficientFunds):
		return codes.FailedPrecondition
	case stdErrors.Is(err, domainErr.ErrInvalidAmount),
		stdErrors.Is(err, domainErr.ErrInvalidStatus),
		stdErrors.Is(err, domainErr.ErrInvalidPenalty),
		stdErrors.Is(err, domainErr.ErrInvalidParty):
		return codes.InvalidArgument
	}
	return codes.Unknown
}
