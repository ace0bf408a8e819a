package middleware

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"example.com/shop-backend/pkg/logger"
)

// RecoveryUnaryInterceptor превращает панику в codes.Internal.
func RecoveryUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(ctx, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStreamInterceptor — stream-версия RecoveryUnaryInterceptor.
func RecoveryStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(ss.Context(), info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func recovered(ctx context.Context, method string, r any) error {
	log := logger.FromContext(ctx)
	log.Error().
		Str("grpc_method", method).
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("Перехвачена паника в gRPC handler")

	// детали паники клиенту не отдаём
	return status.Error(codes.Internal, "внутренняя ошибка сервера")
}
