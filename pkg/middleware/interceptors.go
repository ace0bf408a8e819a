// Package middleware содержит gRPC interceptors внутреннего gRPC сервера
// (health checks и reflection для балансировщика).
package middleware

import (
	"google.golang.org/grpc"
)

// UnaryChain возвращает interceptors в порядке: recovery, trace, logging.
// Recovery должен быть первым, чтобы ловить паники остальных.
func UnaryChain() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		RecoveryUnaryInterceptor(),
		TraceUnaryInterceptor(),
		LoggingUnaryInterceptor(),
	}
}

// StreamChain — то же для stream RPC (health Watch).
func StreamChain() []grpc.StreamServerInterceptor {
	return []grpc.StreamServerInterceptor{
		RecoveryStreamInterceptor(),
		TraceStreamInterceptor(),
		LoggingStreamInterceptor(),
	}
}

// ServerOptions собирает цепочки в опции grpc.NewServer.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryChain()...),
		grpc.ChainStreamInterceptor(StreamChain()...),
	}
}
