package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/registration"
)

type registerRequest struct {
	SiteURL       string         `json:"site_url"`
	AdminEmail    string         `json:"admin_email"`
	CallbackToken string         `json:"callback_token"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type registerResponse struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
}

// Register handles POST /api/v1/register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}

	res, err := s.Registration.Register(r.Context(), registration.Request{
		SiteURL:       req.SiteURL,
		AdminEmail:    req.AdminEmail,
		CallbackToken: req.CallbackToken,
		Metadata:      req.Metadata,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{TenantID: res.TenantID.String(), APIKey: res.APIKey})
}
