// Package httpapi is the boundary adapter: it binds the gateway's internal
// components to the wire endpoints, decides HTTP status codes from domain
// errors, and applies the middleware chain (request id, correlation id,
// logging, recovery, rate limiting, signature verification).
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/conversation"
	"github.com/eaglechat/gateway/internal/providerkey"
	"github.com/eaglechat/gateway/internal/ratelimit"
	"github.com/eaglechat/gateway/internal/registration"
	"github.com/eaglechat/gateway/internal/signer"
	"github.com/eaglechat/gateway/internal/tenant"
	"github.com/eaglechat/gateway/internal/vault"
)

// Server holds the dependencies every handler needs.
type Server struct {
	Tenant       *tenant.Store
	Registration *registration.Coordinator
	Verifier     *signer.Verifier
	Broker       *providerkey.Broker
	RateLimiter  *ratelimit.Limiter
	Conversation *conversation.Store
	Vault        *vault.Vault

	DevelopmentMode bool
	APITitle        string
	APIVersion      string
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// Routes builds the complete router. Unprotected routes (registration,
// validation, key/HMAC configuration) sit outside the signature-verification
// group; /api/v1/chat and /api/v1/conversation-history require a valid HMAC
// envelope.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", signer.HeaderSignature, signer.HeaderTimestamp, signer.HeaderVersion, headerTenantID},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)
	r.Use(s.RateLimitMiddleware)

	r.Get("/", s.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", s.Register)
		r.Post("/validate", s.Validate)
		r.Post("/configure-hmac", s.ConfigureHMAC)
		r.Post("/configure-keys", s.ConfigureKeys)
		r.Post("/get-key-status", s.GetKeyStatus)
		r.Post("/remove-key", s.RemoveKey)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireSignature)
			r.Post("/chat", s.Chat)
			r.Post("/conversation-history", s.ConversationHistory)
		})
	})

	log.Info().Str("title", s.APITitle).Str("version", s.APIVersion).Msg("http routes registered")
	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Health handles GET /.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339Nano)})
}
