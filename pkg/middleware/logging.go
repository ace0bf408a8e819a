package middleware

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"example.com/shop-backend/pkg/logger"
)

// LoggingUnaryInterceptor логирует метод, код ответа и длительность.
func LoggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// LoggingStreamInterceptor логирует stream целиком, после его завершения.
func LoggingStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), info.FullMethod, err, time.Since(start))
		return err
	}
}

func logCall(ctx context.Context, fullMethod string, err error, duration time.Duration) {
	log := logger.FromContext(ctx)

	var event *zerolog.Event
	if err != nil {
		event = log.Error().Err(err)
	} else {
		// health probes идут часто, успешные пишем только в debug
		event = log.Debug()
	}

	event.
		Str("grpc_service", path.Dir(fullMethod)[1:]).
		Str("grpc_method", path.Base(fullMethod)).
		Str("grpc_code", status.Code(err).String()).
		Dur("duration", duration).
		Msg("gRPC вызов")
}
