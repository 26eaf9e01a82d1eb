package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/eaglechat/gateway/internal/apperr"
)

type validateRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Validate handles POST /api/v1/validate. It looks the tenant up by api key
// and confirms the key with a constant-time comparison. A key with no
// matching row is rejected straight after the lookup, without that
// comparison, and the tenant id is compared with plain string equality, so
// the response time is not independent of whether the key matches.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}

	t, err := s.Tenant.ValidateAPIKey(r.Context(), req.APIKey)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if t.TenantID.String() != req.TenantID {
		handleError(w, r, apperr.InvalidCredentials())
		return
	}

	s.Tenant.TouchLastSeen(r.Context(), t.TenantID)
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}
