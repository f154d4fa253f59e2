package server

import (
	"context"
	"net/http"
)

func SetupTracingForTest(ctx context.Context, serviceName string, enable bool) (func(context.Context) error, error) {
	return setupTracing(ctx, serviceName, enable)
}

func WithRequestIDForTest(next http.Handler) http.Handler {
	return withRequestID(next)
}
