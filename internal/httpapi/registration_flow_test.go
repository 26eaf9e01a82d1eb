package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterValidateFlow(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	_, _ = pool.Exec(context.Background(), "DELETE FROM tenant")

	srv := newTestServer(t, pool)
	router := srv.Routes()

	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"verified": true})
	}))
	defer callback.Close()

	regBody, _ := json.Marshal(registerRequest{
		SiteURL:       callback.URL,
		AdminEmail:    "flow@shop.example.com",
		CallbackToken: "t_0123456789abcdef0123456789abcdef",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader(regBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reg registerResponse
	if err := json.NewDecoder(w.Body).Decode(&reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	valBody, _ := json.Marshal(validateRequest{TenantID: reg.TenantID, APIKey: reg.APIKey})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewReader(valBody))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var val validateResponse
	if err := json.NewDecoder(w.Body).Decode(&val); err != nil {
		t.Fatalf("decode validate response: %v", err)
	}
	if !val.Valid {
		t.Fatal("expected valid credentials")
	}

	badBody, _ := json.Marshal(validateRequest{TenantID: reg.TenantID, APIKey: "eck_wrong-key"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewReader(badBody))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad api key, got %d", w.Code)
	}
}

func TestChat_RejectsMissingSignature(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()

	srv := newTestServer(t, pool)
	router := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest && w.Code != http.StatusUnauthorized {
		t.Fatalf("expected rejection for missing tenant/signature headers, got %d", w.Code)
	}
}
