package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "sorriso-digital",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	adminID := uuid.New()
	now := time.Now()

	signed, err := MintAccessToken(cfg, now, AccessTokenPayload{
		AdminID: adminID,
		Email:   "bruno@sorrisodigital.com.br",
		Name:    "Bruno",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != adminID {
		t.Fatalf("unexpected admin id %s", claims.AdminID)
	}
	if claims.Email != "bruno@sorrisodigital.com.br" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "bruno@sorrisodigital.com.br",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "other-secret"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected signature validation failure")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "bruno@sorrisodigital.com.br",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expiry validation failure")
	}
	if _, err := ParseAccessTokenAllowExpired(cfg, signed); err != nil {
		t.Fatalf("allow-expired parse should succeed: %v", err)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for missing admin id")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AdminID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing email")
	}

	broken := cfg
	broken.Secret = ""
	if _, err := MintAccessToken(broken, time.Now(), AccessTokenPayload{AdminID: uuid.New(), Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
