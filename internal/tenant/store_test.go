package tenant

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDuplicateField_MapsConstraintNames(t *testing.T) {
	cases := []struct {
		constraint string
		want       string
	}{
		{"tenant_api_key_active_idx", "api_key"},
		{"tenant_site_url_active_idx", "site_url"},
		{"tenant_admin_email_active_idx", "admin_email"},
		{"tenant_pkey", "tenant_id"},
	}
	for _, tc := range cases {
		pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tc.constraint}
		field, ok := duplicateField(pgErr)
		if !ok {
			t.Fatalf("expected duplicate detection for constraint %s", tc.constraint)
		}
		if field != tc.want {
			t.Fatalf("constraint %s: got field %s, want %s", tc.constraint, field, tc.want)
		}
	}
}

func TestDuplicateField_IgnoresNonUniqueViolations(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "tenant_api_key_active_idx"}
	if _, ok := duplicateField(pgErr); ok {
		t.Fatal("expected foreign_key_violation to be ignored")
	}
	if _, ok := duplicateField(errors.New("boom")); ok {
		t.Fatal("expected non-pg error to be ignored")
	}
}

func TestTenant_HasProviderKey(t *testing.T) {
	key := "sealed-value"
	tn := &Tenant{AnthropicKeySealed: &key}
	if !tn.HasProviderKey("anthropic") {
		t.Fatal("expected anthropic key to be present")
	}
	if tn.HasProviderKey("openai") {
		t.Fatal("expected openai key to be absent")
	}
	if tn.HasProviderKey("unknown") {
		t.Fatal("expected unknown provider to report false")
	}
}

func TestTenant_HasHMACSecret(t *testing.T) {
	tn := &Tenant{}
	if tn.HasHMACSecret() {
		t.Fatal("expected no secret configured")
	}
	empty := ""
	tn.HMACSecretSealed = &empty
	if tn.HasHMACSecret() {
		t.Fatal("expected empty sealed value to not count as configured")
	}
	val := "sealed"
	tn.HMACSecretSealed = &val
	if !tn.HasHMACSecret() {
		t.Fatal("expected configured secret to report true")
	}
}
