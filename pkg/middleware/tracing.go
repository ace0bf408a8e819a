package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"example.com/shop-backend/pkg/logger"
)

// Ключи metadata, совпадают с HTTP заголовками REST API.
const (
	TraceIDKey       = "x-trace-id"
	CorrelationIDKey = "x-correlation-id"
)

// TraceUnaryInterceptor переносит trace_id и correlation_id из metadata в context.
func TraceUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(contextWithTrace(ctx), req)
	}
}

// TraceStreamInterceptor — stream-версия TraceUnaryInterceptor.
func TraceStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &tracedStream{ServerStream: ss, ctx: contextWithTrace(ss.Context())})
	}
}

// contextWithTrace берёт ID из входящей metadata, отсутствующие генерирует.
func contextWithTrace(ctx context.Context) context.Context {
	traceID := firstValue(ctx, TraceIDKey)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	correlationID := firstValue(ctx, CorrelationIDKey)
	if correlationID == "" {
		correlationID = traceID
	}
	return logger.NewContextWithIDs(ctx, traceID, correlationID)
}

func firstValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context {
	return s.ctx
}
