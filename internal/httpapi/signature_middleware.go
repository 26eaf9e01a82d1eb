package httpapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/signer"
)

const headerTenantID = "X-EagleChat-Tenant-Id"

// RequireSignature enforces the HMAC envelope on protected routes: it reads
// the raw body (restoring it for the handler), parses the envelope headers,
// loads the tenant's sealed secret, and verifies. On success the tenant id
// is attached to the request context via GetTenantID.
func (s *Server) RequireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantIDHeader := r.Header.Get(headerTenantID)
		tenantID, err := uuid.Parse(tenantIDHeader)
		if err != nil {
			handleError(w, r, apperr.BadSignature())
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			handleError(w, r, apperr.Validation("could not read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		env, err := signer.ParseHeaders(r.Header.Get)
		if err != nil {
			handleError(w, r, err)
			return
		}

		t, err := s.Tenant.GetByTenantID(r.Context(), tenantID)
		if err != nil {
			if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindInvalidCredentials {
				err = apperr.BadSignature()
			}
			handleError(w, r, err)
			return
		}

		sealedSecret := ""
		if t.HMACSecretSealed != nil {
			sealedSecret = *t.HMACSecretSealed
		}
		if err := s.Verifier.Verify(env, sealedSecret, body); err != nil {
			handleError(w, r, err)
			return
		}

		s.Tenant.TouchLastSeen(r.Context(), tenantID)
		next.ServeHTTP(w, r.WithContext(withTenantID(r.Context(), tenantID)))
	})
}
