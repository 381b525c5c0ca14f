package tokens_test

import (
	"errors"
	"testing"
	"time"

	"github.com/technosupport/vms-analytics/internal/tokens"
)

func TestTokenGeneration(t *testing.T) {
	mgr := tokens.NewManager("test-secret-key")
	userID := "user-123"
	companyID := "company-abc"

	token, err := mgr.GenerateAccessToken(userID, companyID)
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}
	if claims.CompanyID != companyID {
		t.Errorf("Expected CompanyID %s, got %s", companyID, claims.CompanyID)
	}
	if claims.TokenType != tokens.Access {
		t.Errorf("Expected TokenType %s, got %s", tokens.Access, claims.TokenType)
	}
	if claims.ID == "" {
		t.Error("Expected a jti")
	}
}

func TestInvalidSignature(t *testing.T) {
	mgr1 := tokens.NewManager("secret-1")
	mgr2 := tokens.NewManager("secret-2")

	token, _ := mgr1.GenerateAccessToken("u1", "c1")
	_, err := mgr2.ValidateToken(token)
	if !errors.Is(err, tokens.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := tokens.NewManager("secret")

	token, err := mgr.GenerateToken("u1", "c1", tokens.Access, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestAccessTokenLifetime(t *testing.T) {
	mgr := tokens.NewManager("secret")

	before := time.Now()
	token, err := mgr.GenerateAccessToken("u1", "c1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	ttl := claims.ExpiresAt.Sub(before)
	if ttl < tokens.AccessTTL-time.Second || ttl > tokens.AccessTTL+time.Second {
		t.Errorf("Expected lifetime near %s, got %s", tokens.AccessTTL, ttl)
	}
}
