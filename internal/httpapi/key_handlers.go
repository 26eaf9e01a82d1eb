package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/eaglechat/gateway/internal/apperr"
)

type configureHMACRequest struct {
	TenantID  string `json:"tenant_id"`
	APIKey    string `json:"api_key"`
	HMACSecret string `json:"hmac_secret"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// ConfigureHMAC handles POST /api/v1/configure-hmac.
func (s *Server) ConfigureHMAC(w http.ResponseWriter, r *http.Request) {
	var req configureHMACRequest
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
	if len(req.HMACSecret) < 16 {
		handleError(w, r, apperr.Validation("hmac_secret must be at least 16 characters"))
		return
	}

	sealed, err := s.Vault.Seal([]byte(req.HMACSecret))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Tenant.SetHMACSecret(r.Context(), t.TenantID, sealed); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type configureKeysRequest struct {
	TenantID      string `json:"tenant_id"`
	APIKey        string `json:"api_key"`
	Provider      string `json:"provider"`
	ProviderKey   string `json:"provider_key"`
}

// ConfigureKeys handles POST /api/v1/configure-keys.
func (s *Server) ConfigureKeys(w http.ResponseWriter, r *http.Request) {
	var req configureKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}
	tenantID, err := s.authenticateByAPIKey(r, req.TenantID, req.APIKey)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.Broker.Configure(r.Context(), tenantID, req.Provider, req.ProviderKey); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type getKeyStatusRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
}

type keyStatusResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

// GetKeyStatus handles POST /api/v1/get-key-status.
func (s *Server) GetKeyStatus(w http.ResponseWriter, r *http.Request) {
	var req getKeyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}
	tenantID, err := s.authenticateByAPIKey(r, req.TenantID, req.APIKey)
	if err != nil {
		handleError(w, r, err)
		return
	}

	masked, err := s.Broker.Mask(r.Context(), tenantID, req.Provider)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindNoProviderKey {
			writeJSON(w, http.StatusOK, keyStatusResponse{Configured: false})
			return
		}
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keyStatusResponse{Configured: true, Masked: masked})
}

type removeKeyRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
}

// RemoveKey handles POST /api/v1/remove-key.
func (s *Server) RemoveKey(w http.ResponseWriter, r *http.Request) {
	var req removeKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}
	tenantID, err := s.authenticateByAPIKey(r, req.TenantID, req.APIKey)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.Broker.Remove(r.Context(), tenantID, req.Provider); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// authenticateByAPIKey validates apiKey and confirms it belongs to
// tenantIDStr, returning the parsed tenant id on success. Shared by every
// unprotected-but-credentialed endpoint that acts on an existing tenant.
func (s *Server) authenticateByAPIKey(r *http.Request, tenantIDStr, apiKey string) (uuid.UUID, error) {
	t, err := s.Tenant.ValidateAPIKey(r.Context(), apiKey)
	if err != nil {
		return uuid.Nil, err
	}
	if t.TenantID.String() != tenantIDStr {
		return uuid.Nil, apperr.InvalidCredentials()
	}
	return t.TenantID, nil
}
