// Package interceptor holds the gRPC server interceptors.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

func skipSet(skipMethods []string) map[string]struct{} {
	skipped := make(map[string]struct{}, len(skipMethods))
	for _, m := range skipMethods {
		skipped[m] = struct{}{}
	}
	return skipped
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func logCall(ctx context.Context, kind, method string, start time.Time, err error) {
	st, _ := status.FromError(err)

	logger.Log.Infoln(
		"gRPC "+kind,
		"method", method,
		"peer", peerAddr(ctx),
		"duration", time.Since(start),
		"code", st.Code().String(),
		"message", st.Message(),
	)
}

// UnaryLoggingInterceptor logs each unary call with method, peer, duration and status,
// except for the methods listed in skipMethods.
func UnaryLoggingInterceptor(skipMethods ...string) grpc.UnaryServerInterceptor {
	skipped := skipSet(skipMethods)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		if _, ok := skipped[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err = handler(ctx, req)
		logCall(ctx, "request", info.FullMethod, start, err)

		return resp, err
	}
}

// StreamLoggingInterceptor logs each stream once it ends.
func StreamLoggingInterceptor(skipMethods ...string) grpc.StreamServerInterceptor {
	skipped := skipSet(skipMethods)

	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if _, ok := skipped[info.FullMethod]; ok {
			return handler(srv, ss)
		}

		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), "stream", info.FullMethod, start, err)

		return err
	}
}
