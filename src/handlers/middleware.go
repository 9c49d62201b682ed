package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/username/fintrack/backend/src/logger"
)

// ContextualLoggerMiddleware attaches a request-scoped logger carrying a
// request id to the context.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctxLogger := logger.L.With(slog.String("requestID", requestID))
		ctx := logger.ToContext(r.Context(), ctxLogger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
