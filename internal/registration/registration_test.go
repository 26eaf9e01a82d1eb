package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/tenant"
)

// fakeStore is an in-memory stand-in for *tenant.Store, enforcing the same
// uniqueness invariants the real unique indexes would.
type fakeStore struct {
	mu      sync.Mutex
	bySite  map[string]bool
	byEmail map[string]bool
	rows    []tenant.NewTenant
}

func newFakeStore() *fakeStore {
	return &fakeStore{bySite: map[string]bool{}, byEmail: map[string]bool{}}
}

func (f *fakeStore) ExistingField(ctx context.Context, siteURL, adminEmail string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bySite[siteURL] {
		return "site_url", true, nil
	}
	if f.byEmail[adminEmail] {
		return "admin_email", true, nil
	}
	return "", false, nil
}

func (f *fakeStore) Insert(ctx context.Context, nt tenant.NewTenant) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bySite[nt.SiteURL] {
		return nil, apperr.DuplicateTenant("site_url")
	}
	if f.byEmail[nt.AdminEmail] {
		return nil, apperr.DuplicateTenant("admin_email")
	}
	f.bySite[nt.SiteURL] = true
	f.byEmail[nt.AdminEmail] = true
	f.rows = append(f.rows, nt)
	return &tenant.Tenant{TenantID: nt.TenantID, APIKey: nt.APIKey, SiteURL: nt.SiteURL,
		AdminEmail: nt.AdminEmail, Domain: nt.Domain, SiteHash: nt.SiteHash, IsActive: true}, nil
}

var apiKeyPattern = regexp.MustCompile(`^eck_[A-Za-z0-9_-]{44}$`)

func TestRegister_HappyPath(t *testing.T) {
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"verified": true})
	}))
	defer callback.Close()

	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, true)

	res, err := coord.Register(context.Background(), Request{
		SiteURL:       callback.URL,
		AdminEmail:    "a@shop.example.com",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.TenantID.String() == "" {
		t.Fatal("expected non-empty tenant id")
	}
	if !apiKeyPattern.MatchString(res.APIKey) {
		t.Fatalf("api key %q does not match expected shape", res.APIKey)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected exactly one stored row, got %d", len(store.rows))
	}
}

func TestRegister_CallbackExhaustion(t *testing.T) {
	var calls int
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer callback.Close()

	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, true)

	_, err := coord.Register(context.Background(), Request{
		SiteURL:       callback.URL,
		AdminEmail:    "b@shop.example.com",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindCallbackFailed {
		t.Fatalf("expected CallbackFailed, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(store.rows) != 0 {
		t.Fatal("expected no rows stored after callback exhaustion")
	}
}

func TestRegister_DuplicateSiteURL(t *testing.T) {
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"verified": true})
	}))
	defer callback.Close()

	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, true)

	first, err := coord.Register(context.Background(), Request{
		SiteURL:       callback.URL,
		AdminEmail:    "c1@shop.example.com",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_ = first

	_, err = coord.Register(context.Background(), Request{
		SiteURL:       callback.URL,
		AdminEmail:    "c2@shop.example.com",
		CallbackToken: "t_" + "fedcba9876543210fedcba9876543210",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindDuplicateTenant || appErr.DuplicateField != "site_url" {
		t.Fatalf("expected DuplicateTenant{site_url}, got %v", err)
	}
}

func TestRegister_RejectsBadSiteURL(t *testing.T) {
	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, false)

	_, err := coord.Register(context.Background(), Request{
		SiteURL:       "not-a-url",
		AdminEmail:    "d@shop.example.com",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestRegister_BlocksPrivateAddressesUnlessDevelopmentMode(t *testing.T) {
	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, false)

	_, err := coord.Register(context.Background(), Request{
		SiteURL:       "http://127.0.0.1:9999",
		AdminEmail:    "e@shop.example.com",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected Validation error for loopback address, got %v", err)
	}
}

func TestRegister_RejectsShortCallbackToken(t *testing.T) {
	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, true)

	_, err := coord.Register(context.Background(), Request{
		SiteURL:       "https://shop.example.com",
		AdminEmail:    "f@shop.example.com",
		CallbackToken: "short",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected Validation error for short token, got %v", err)
	}
}

func TestRegister_RejectsBadEmail(t *testing.T) {
	store := newFakeStore()
	coord := NewCoordinator(store, 3, 10*time.Millisecond, true)

	_, err := coord.Register(context.Background(), Request{
		SiteURL:       "https://shop.example.com",
		AdminEmail:    "not-an-email",
		CallbackToken: "t_" + "0123456789abcdef0123456789abcdef",
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected Validation error for bad email, got %v", err)
	}
}
