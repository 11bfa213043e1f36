package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/brunotavares/sorrisodigital-backend/pkg/auth"
	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
)

type fakeSessionChecker struct {
	known map[string]bool
	err   error
}

func (f *fakeSessionChecker) HasSession(_ context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[jti], nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "sorriso-test",
		ExpirationMinutes: 60,
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, adminID uuid.UUID, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID: adminID,
		Email:   "admin@sorriso.com.br",
		Name:    "Admin",
		JTI:     jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	cfg := testJWTConfig()
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/leads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	cfg := testJWTConfig()
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthPassesClaimsToContext(t *testing.T) {
	cfg := testJWTConfig()
	adminID := uuid.New()
	checker := &fakeSessionChecker{known: map[string]bool{"session-1": true}}

	var gotAdminID, gotEmail string
	handler := Auth(cfg, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdminID = AdminIDFromContext(r.Context())
		gotEmail = AdminEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, adminID, "session-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAdminID != adminID.String() {
		t.Fatalf("expected admin id %s, got %s", adminID, gotAdminID)
	}
	if gotEmail != "admin@sorriso.com.br" {
		t.Fatalf("unexpected email in context: %s", gotEmail)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	checker := &fakeSessionChecker{known: map[string]bool{}}

	handler := Auth(cfg, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, uuid.New(), "revoked"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
