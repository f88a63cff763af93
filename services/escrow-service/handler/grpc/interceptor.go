package grpcServer

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// LoggingInterceptor logs every unary call with its status code and latency.
// Server errors are logged at error level, client errors at info.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []interface{}{
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		}
		switch code {
		case codes.OK:
			log.Debug("grpc call", fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			log.Error("grpc call failed", append(fields, "error", err)...)
		default:
			log.Info("grpc call rejected", append(fields, "error", err)...)
		}
		return resp, err
	}
}
