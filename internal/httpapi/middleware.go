package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/apperr"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlationId"
	tenantIDKey      contextKey = "tenantId"
)

// CorrelationMiddleware reads X-Correlation-ID or generates one, attaching
// it to both the response and the request-scoped logger so every log line
// for this request can be tied back to the client's view of it.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID retrieves the correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

func withTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// GetTenantID retrieves the authenticated tenant id attached by RequireSignature.
func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(tenantIDKey).(uuid.UUID)
	return v, ok
}

// RateLimitMiddleware rejects requests once the per-source-address token
// bucket is exhausted, setting Retry-After on 429 responses.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}
		allowed, retryAfter := s.RateLimiter.Allow(key)
		if !allowed {
			handleError(w, r, apperr.RateLimited(retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}
