// Package tenant owns the registered-site record: the WordPress install's
// identity, its api_key, its sealed HMAC secret, and its sealed provider
// keys. Storage is Postgres via pgx; uniqueness is enforced by the database,
// not by read-then-write checks in this package.
package tenant

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tenant is a registered WordPress site.
type Tenant struct {
	TenantID    uuid.UUID
	APIKey      string
	SiteURL     string
	AdminEmail  string
	Domain      string
	SiteHash    string

	HMACSecretSealed    *string
	HMACSecretUpdatedAt *time.Time

	AnthropicKeySealed *string
	OpenAIKeySealed    *string
	ProviderKeysUpdatedAt *time.Time

	CreatedAt  time.Time
	LastSeenAt *time.Time
	IsActive   bool
	Metadata   json.RawMessage
}

// HasHMACSecret reports whether this tenant has completed HMAC configuration.
func (t *Tenant) HasHMACSecret() bool {
	return t.HMACSecretSealed != nil && *t.HMACSecretSealed != ""
}

// HasProviderKey reports whether a sealed key is stored for the given provider.
func (t *Tenant) HasProviderKey(provider string) bool {
	switch provider {
	case "anthropic":
		return t.AnthropicKeySealed != nil && *t.AnthropicKeySealed != ""
	case "openai":
		return t.OpenAIKeySealed != nil && *t.OpenAIKeySealed != ""
	default:
		return false
	}
}
