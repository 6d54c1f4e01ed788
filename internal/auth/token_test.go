package auth

import (
	"testing"
	"time"

	"github.com/citytransit/transit-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("u-1", domain.UserRoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Errorf("expiry %v is not about an hour away", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if claims.UserID != "u-1" {
		t.Errorf("UserID = %q, want u-1", claims.UserID)
	}
	if claims.Role != domain.UserRoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, domain.UserRoleAdmin)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("issuer-secret", 60)
	verifier := NewTokenManager("other-secret", 60)

	token, _, err := issuer.GenerateToken("u-1", domain.UserRoleUser)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Error("token signed with another secret must not parse")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := &TokenManager{secret: []byte("test-secret"), ttl: -time.Minute}

	token, _, err := tm.GenerateToken("u-1", domain.UserRoleUser)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Error("expired token must not parse")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	if _, err := tm.ParseToken("not-a-jwt"); err == nil {
		t.Error("malformed token must not parse")
	}
}

func TestTokenManagerDefaultTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	if tm.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h default", tm.ttl)
	}
}
