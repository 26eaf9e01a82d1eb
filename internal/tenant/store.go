package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/cryptoutil"
)

const pgUniqueViolation = "23505"

// ExistingField reports whether an active tenant already owns siteURL or
// adminEmail, returning which field collided first. This is an optimistic
// pre-check only; Insert's unique indexes remain the source of truth for
// correctness under concurrent registrations.
func (s *Store) ExistingField(ctx context.Context, siteURL, adminEmail string) (field string, exists bool, err error) {
	const q = `
		SELECT
			EXISTS (SELECT 1 FROM tenant WHERE site_url = $1 AND is_active),
			EXISTS (SELECT 1 FROM tenant WHERE admin_email = $2 AND is_active)`
	var siteExists, emailExists bool
	if err := s.pool.QueryRow(ctx, q, siteURL, adminEmail).Scan(&siteExists, &emailExists); err != nil {
		return "", false, apperr.StoreUnavailable(err)
	}
	if siteExists {
		return "site_url", true, nil
	}
	if emailExists {
		return "admin_email", true, nil
	}
	return "", false, nil
}

// Store persists tenants in Postgres. All lookups filter is_active = true;
// registration is a soft, append-mostly lifecycle (see Deactivate).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewTenant is the set of fields a registration supplies when minting a
// tenant record. TenantID and APIKey are generated by the caller (see
// internal/registration) so that minting and persistence stay separable.
// Metadata is built via MarshalMetadata from the caller-supplied free-form
// map; a nil/empty Metadata is normalized to an empty JSON object on insert.
type NewTenant struct {
	TenantID   uuid.UUID
	APIKey     string
	SiteURL    string
	AdminEmail string
	Domain     string
	SiteHash   string
	Metadata   json.RawMessage
}

// Insert persists a newly minted tenant. Uniqueness on api_key, site_url,
// and admin_email (among active tenants) is enforced by partial unique
// indexes; a violation is translated into apperr.DuplicateTenant naming the
// field that collided, rather than being checked for up front.
func (s *Store) Insert(ctx context.Context, nt NewTenant) (*Tenant, error) {
	const q = `
		INSERT INTO tenant (tenant_id, api_key, site_url, admin_email, domain, site_hash, created_at, is_active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, now(), true, $7)
		RETURNING tenant_id, api_key, site_url, admin_email, domain, site_hash, created_at, is_active, metadata`

	metadata := nt.Metadata
	if len(metadata) == 0 {
		metadata, _ = MarshalMetadata(nil)
	}
	row := s.pool.QueryRow(ctx, q, nt.TenantID, nt.APIKey, nt.SiteURL, nt.AdminEmail, nt.Domain, nt.SiteHash, metadata)

	var t Tenant
	err := row.Scan(&t.TenantID, &t.APIKey, &t.SiteURL, &t.AdminEmail, &t.Domain, &t.SiteHash,
		&t.CreatedAt, &t.IsActive, &t.Metadata)
	if err != nil {
		if field, ok := duplicateField(err); ok {
			return nil, apperr.DuplicateTenant(field)
		}
		return nil, apperr.StoreUnavailable(err)
	}
	return &t, nil
}

// duplicateField inspects a Postgres error for unique_violation (23505) and
// maps the violated index name back to the spec's field vocabulary.
func duplicateField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "api_key"):
		return "api_key", true
	case strings.Contains(pgErr.ConstraintName, "site_url"):
		return "site_url", true
	case strings.Contains(pgErr.ConstraintName, "admin_email"):
		return "admin_email", true
	default:
		return "tenant_id", true
	}
}

const selectColumns = `tenant_id, api_key, site_url, admin_email, domain, site_hash,
	hmac_secret_sealed, hmac_secret_updated_at,
	anthropic_key_sealed, openai_key_sealed, provider_keys_updated_at,
	created_at, last_seen_at, is_active, metadata`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.TenantID, &t.APIKey, &t.SiteURL, &t.AdminEmail, &t.Domain, &t.SiteHash,
		&t.HMACSecretSealed, &t.HMACSecretUpdatedAt,
		&t.AnthropicKeySealed, &t.OpenAIKeySealed, &t.ProviderKeysUpdatedAt,
		&t.CreatedAt, &t.LastSeenAt, &t.IsActive, &t.Metadata)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByTenantID fetches an active tenant by id.
func (s *Store) GetByTenantID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	q := `SELECT ` + selectColumns + ` FROM tenant WHERE tenant_id = $1 AND is_active`
	t, err := scanTenant(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, apperr.StoreUnavailable(err)
	}
	return t, nil
}

// ValidateAPIKey looks up the tenant owning apiKey and confirms the match in
// constant time, so that a mismatched key and a nonexistent key take
// indistinguishable time from the caller's perspective for keys of the same
// length class. Postgres does the initial lookup (api_key is indexed), but
// every candidate match is still re-verified with cryptoutil.ConstantTimeEqual
// before being trusted.
func (s *Store) ValidateAPIKey(ctx context.Context, apiKey string) (*Tenant, error) {
	q := `SELECT ` + selectColumns + ` FROM tenant WHERE api_key = $1 AND is_active`
	t, err := scanTenant(s.pool.QueryRow(ctx, q, apiKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, apperr.StoreUnavailable(err)
	}
	if !cryptoutil.ConstantTimeEqual(t.APIKey, apiKey) {
		return nil, apperr.InvalidCredentials()
	}
	return t, nil
}

// TouchLastSeen records activity for rate-limit/observability purposes.
// Failures are logged, not propagated: losing a last-seen update must never
// fail the request it is attached to.
func (s *Store) TouchLastSeen(ctx context.Context, id uuid.UUID) {
	const q = `UPDATE tenant SET last_seen_at = now() WHERE tenant_id = $1`
	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		log.Warn().Err(err).Str("tenant_id", id.String()).Msg("failed to update last_seen_at")
	}
}

// SetHMACSecret stores a sealed HMAC secret for the tenant.
func (s *Store) SetHMACSecret(ctx context.Context, id uuid.UUID, sealed string) error {
	const q = `UPDATE tenant SET hmac_secret_sealed = $2, hmac_secret_updated_at = now() WHERE tenant_id = $1 AND is_active`
	ct, err := s.pool.Exec(ctx, q, id, sealed)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.InvalidCredentials()
	}
	return nil
}

// SetProviderKey stores a sealed provider key for the named provider.
func (s *Store) SetProviderKey(ctx context.Context, id uuid.UUID, provider, sealed string) error {
	var q string
	switch provider {
	case "anthropic":
		q = `UPDATE tenant SET anthropic_key_sealed = $2, provider_keys_updated_at = now() WHERE tenant_id = $1 AND is_active`
	case "openai":
		q = `UPDATE tenant SET openai_key_sealed = $2, provider_keys_updated_at = now() WHERE tenant_id = $1 AND is_active`
	default:
		return apperr.Validation("unknown provider: " + provider)
	}
	ct, err := s.pool.Exec(ctx, q, id, sealed)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.InvalidCredentials()
	}
	return nil
}

// RemoveProviderKey clears a previously configured provider key.
func (s *Store) RemoveProviderKey(ctx context.Context, id uuid.UUID, provider string) error {
	return s.SetProviderKey(ctx, id, provider, "")
}

// Deactivate soft-deletes a tenant; all subsequent lookups exclude it.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE tenant SET is_active = false WHERE tenant_id = $1`
	ct, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.InvalidCredentials()
	}
	return nil
}

// MarshalMetadata marshals a caller-supplied metadata value into the
// json.RawMessage form NewTenant.Metadata expects, used by
// internal/registration to turn a registration request's free-form
// metadata map into the value threaded through Insert. A nil v marshals to
// an empty JSON object rather than JSON null, since the metadata column is
// NOT NULL.
func MarshalMetadata(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage(`{}`), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
