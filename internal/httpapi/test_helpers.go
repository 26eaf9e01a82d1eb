package httpapi

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eaglechat/gateway/internal/conversation"
	"github.com/eaglechat/gateway/internal/db"
	"github.com/eaglechat/gateway/internal/providerkey"
	"github.com/eaglechat/gateway/internal/ratelimit"
	"github.com/eaglechat/gateway/internal/registration"
	"github.com/eaglechat/gateway/internal/signer"
	"github.com/eaglechat/gateway/internal/tenant"
	"github.com/eaglechat/gateway/internal/vault"
)

// getTestDB connects to TEST_DATABASE_URL and bootstraps the schema. Tests
// using it are skipped when TEST_DATABASE_URL is not set.
func getTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	if err := db.Bootstrap(ctx, pool); err != nil {
		t.Fatalf("db.Bootstrap: %v", err)
	}
	return pool
}

// newTestServer wires a full Server against pool with sane test defaults.
func newTestServer(t *testing.T, pool *pgxpool.Pool) *Server {
	t.Helper()
	v, err := vault.New([]byte("test-only master secret, never used in production"))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	tenantStore := tenant.NewStore(pool)
	return &Server{
		Tenant:       tenantStore,
		Registration: registration.NewCoordinator(tenantStore, 3, 10*time.Millisecond, true),
		Verifier:     signer.NewVerifier(v),
		Broker:       providerkey.NewBroker(tenantStore, v),
		RateLimiter:  ratelimit.New(1000, time.Minute),
		Conversation: conversation.NewStore(pool),
		Vault:        v,

		DevelopmentMode: true,
		APITitle:        "EagleChat Gateway (test)",
		APIVersion:      "test",
	}
}
