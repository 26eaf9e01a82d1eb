package httpapi

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/apperr"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	Provider      string `json:"provider,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	writeErrorWithProvider(w, r, status, kind, message, "")
}

func writeErrorWithProvider(w http.ResponseWriter, r *http.Request, status int, kind, message, provider string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind, Provider: provider, CorrelationID: GetCorrelationID(r.Context())})
}

// handleError is the single place that maps a domain error to an HTTP
// response. Inner packages never write HTTP responses themselves; this is
// the boundary that decides the status code. Crypto-integrity and
// store-unavailable errors are logged with detail and surfaced generically.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Str("correlation_id", GetCorrelationID(r.Context())).Msg("unmapped internal error")
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		writeError(w, r, http.StatusBadRequest, string(appErr.Kind), appErr.Message)
	case apperr.KindDuplicateTenant:
		writeError(w, r, http.StatusBadRequest, string(appErr.Kind), appErr.Message)
	case apperr.KindCallbackFailed:
		writeError(w, r, http.StatusBadRequest, string(appErr.Kind), appErr.Message)
	case apperr.KindInvalidCredentials:
		writeError(w, r, http.StatusUnauthorized, string(appErr.Kind), "invalid credentials")
	case apperr.KindBadSignature, apperr.KindStaleTimestamp, apperr.KindHmacNotConfigured:
		log.Warn().Str("kind", string(appErr.Kind)).Str("correlation_id", GetCorrelationID(r.Context())).Msg("signature verification failed")
		writeError(w, r, http.StatusUnauthorized, string(appErr.Kind), "unauthorized")
	case apperr.KindInvalidProviderKey, apperr.KindProbeUnavailable, apperr.KindNoProviderKey:
		writeErrorWithProvider(w, r, http.StatusBadRequest, string(appErr.Kind), appErr.Message, appErr.Provider)
	case apperr.KindRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds))
		writeError(w, r, http.StatusTooManyRequests, string(appErr.Kind), appErr.Message)
	case apperr.KindSealIntegrity:
		log.Error().Err(err).Str("correlation_id", GetCorrelationID(r.Context())).Msg("seal integrity check failed")
		writeError(w, r, http.StatusInternalServerError, string(appErr.Kind), "internal error")
	case apperr.KindStoreUnavailable:
		log.Error().Err(err).Str("correlation_id", GetCorrelationID(r.Context())).Msg("store unavailable")
		writeError(w, r, http.StatusInternalServerError, string(appErr.Kind), "internal error, retry later")
	default:
		log.Error().Err(err).Msg("unclassified app error kind")
		writeError(w, r, http.StatusInternalServerError, string(appErr.Kind), "internal error")
	}
}
