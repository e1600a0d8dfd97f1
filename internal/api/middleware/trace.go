package middleware

import (
	"net/http"

	"log/slog"

	"github.com/babelpdf/babelpdf-api/internal/api/shared"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
)

// NewTraceMiddleware attaches a trace ID to the request context and stores a
// request-scoped logger carrying it, so every log line for the request can be
// correlated with the trace_id in error responses.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			reqLogger := base.With("trace_id", shared.GetTraceID(ctx))
			ctx = logger.WithLogger(ctx, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
