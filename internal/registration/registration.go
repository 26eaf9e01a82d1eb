// Package registration implements the three-party onboarding handshake: a
// WordPress install claims a site_url and admin_email, the coordinator
// calls back to that origin to prove control, and only then mints and
// persists credentials.
//
// Grounded on the teacher's callback/retry shape plus
// alanyoungcy-polymarketbot's HMAC conventions for token generation; the
// constant-interval retry policy uses cenkalti/backoff/v4, promoted here
// from an indirect teacher dependency to a direct, exercised one.
package registration

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/cryptoutil"
	"github.com/eaglechat/gateway/internal/tenant"
)

const (
	callbackPath    = "/wp-json/eaglechat-plugin/v1/verify"
	minCallbackToken = 16
	apiKeyPrefix    = "eck_"
	apiKeyRandBytes = 33 // -> 44 base64url chars
)

var callbackTokenPattern = regexp.MustCompile(`^[[:print:]]{16,}$`)

// Request is the caller-supplied registration draft. Metadata is a
// free-form key/value map with no invariants of its own (spec.md's
// "metadata" tenant field); it is optional.
type Request struct {
	SiteURL       string
	AdminEmail    string
	CallbackToken string
	Metadata      map[string]any
}

// Result is returned to the caller on success.
type Result struct {
	TenantID uuid.UUID
	APIKey   string
}

// tenantStore is the subset of *tenant.Store the coordinator depends on,
// narrowed to an interface so tests can substitute an in-memory fake.
type tenantStore interface {
	ExistingField(ctx context.Context, siteURL, adminEmail string) (field string, exists bool, err error)
	Insert(ctx context.Context, nt tenant.NewTenant) (*tenant.Tenant, error)
}

// Coordinator drives Accepted -> Verifying -> Verified -> Persisted.
type Coordinator struct {
	store            tenantStore
	httpClient       *http.Client
	retryAttempts    int
	retryDelay       time.Duration
	developmentMode  bool
}

func NewCoordinator(store tenantStore, retryAttempts int, retryDelay time.Duration, developmentMode bool) *Coordinator {
	return &Coordinator{
		store:      store,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		developmentMode: developmentMode,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
	}
}

// Register validates the request, attests the callback, and persists a new
// tenant. Returns apperr.Validation, apperr.DuplicateTenant, or
// apperr.CallbackFailed on failure.
func (c *Coordinator) Register(ctx context.Context, req Request) (*Result, error) {
	domain, err := c.validateAndDeriveDomain(req.SiteURL)
	if err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(req.AdminEmail); err != nil {
		return nil, apperr.Validation("admin_email is not a valid email address")
	}
	if !callbackTokenPattern.MatchString(req.CallbackToken) || len(req.CallbackToken) < minCallbackToken {
		return nil, apperr.Validation(fmt.Sprintf("callback_token must be at least %d printable characters", minCallbackToken))
	}

	if field, exists, err := c.store.ExistingField(ctx, req.SiteURL, req.AdminEmail); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.DuplicateTenant(field)
	}

	if err := c.attestCallback(ctx, req.SiteURL, req.CallbackToken); err != nil {
		return nil, err
	}

	tenantID := uuid.New()
	apiKey, err := mintAPIKey()
	if err != nil {
		return nil, fmt.Errorf("registration: mint api key: %w", err)
	}
	siteHash := computeSiteHash(domain, tenantID)

	metadata, err := tenant.MarshalMetadata(req.Metadata)
	if err != nil {
		return nil, apperr.Validation("metadata could not be encoded")
	}

	t, err := c.store.Insert(ctx, tenant.NewTenant{
		TenantID:   tenantID,
		APIKey:     apiKey,
		SiteURL:    req.SiteURL,
		AdminEmail: req.AdminEmail,
		Domain:     domain,
		SiteHash:   siteHash,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tenant_id", t.TenantID.String()).Str("domain", domain).Msg("tenant registered")
	return &Result{TenantID: t.TenantID, APIKey: apiKey}, nil
}

// validateAndDeriveDomain parses site_url, enforces http/https + absolute
// form, and returns the lowercased host (port preserved only if non-default).
func (c *Coordinator) validateAndDeriveDomain(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", apperr.Validation("site_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperr.Validation("site_url must use http or https")
	}
	if u.Hostname() == "" {
		return "", apperr.Validation("site_url must include a host")
	}

	if err := c.guardSSRF(u.Hostname()); err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	isDefaultPort := port == "" ||
		(u.Scheme == "http" && port == "80") ||
		(u.Scheme == "https" && port == "443")
	if port != "" && !isDefaultPort {
		return host + ":" + port, nil
	}
	return host, nil
}

// guardSSRF blocks registration for sites resolving to private, loopback, or
// link-local addresses, unless development_mode relaxes the check. This is
// not optional in production: an attacker-controlled site_url must not be
// able to make the gateway issue requests to internal infrastructure.
func (c *Coordinator) guardSSRF(host string) error {
	if c.developmentMode {
		return nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return apperr.Validation("site_url host could not be resolved")
	}
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.To16())
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return apperr.Validation("site_url resolves to a disallowed address range")
		}
	}
	return nil
}

type callbackRequestBody struct {
	CallbackToken string `json:"callback_token"`
}

type callbackResponseBody struct {
	Verified bool `json:"verified"`
}

// attestCallback posts the token to the claimed origin and retries on a
// constant interval; it never mints credentials until a 2xx response with
// {"verified": true} is observed.
func (c *Coordinator) attestCallback(ctx context.Context, siteURL, token string) error {
	target := strings.TrimRight(siteURL, "/") + callbackPath
	body, err := json.Marshal(callbackRequestBody{CallbackToken: token})
	if err != nil {
		return fmt.Errorf("registration: encode callback body: %w", err)
	}

	attempts := 0
	operation := func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // retryable: network error
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("callback returned status %d", resp.StatusCode)
		}

		var parsed callbackResponseBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("callback returned unparseable body: %w", err)
		}
		if !parsed.Verified {
			return fmt.Errorf("callback reported verified=false")
		}
		return nil
	}

	maxRetries := c.retryAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(maxRetries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		log.Warn().Err(err).Str("site_url", siteURL).Int("attempts", attempts).Msg("callback attestation failed")
		return apperr.CallbackFailed(err.Error(), attempts)
	}
	return nil
}

func mintAPIKey() (string, error) {
	tok, err := cryptoutil.RandomToken(apiKeyRandBytes)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + tok, nil
}

func computeSiteHash(domain string, tenantID uuid.UUID) string {
	sum := sha256.Sum256([]byte(domain + tenantID.String()))
	return hex.EncodeToString(sum[:])
}
