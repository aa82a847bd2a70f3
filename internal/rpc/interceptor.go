package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/rotor/internal/logging"
	"github.com/RowanDark/rotor/internal/observability/metrics"
)

// UnaryServerInterceptor records request metrics and an rpc_call audit
// event for every unary call.
func UnaryServerInterceptor(logger *logging.AuditLogger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		metrics.ObserveRequest("grpc", info.FullMethod, code.String(), elapsed)

		decision := logging.DecisionAllow
		reason := ""
		if err != nil {
			decision = logging.DecisionDeny
			reason = status.Convert(err).Message()
		}
		_ = logger.Emit(logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  decision,
			Reason:    reason,
			Metadata: map[string]any{
				"method":      info.FullMethod,
				"code":        code.String(),
				"duration_ms": elapsed.Milliseconds(),
			},
		})
		return resp, err
	}
}
