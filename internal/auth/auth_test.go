package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	hash, err := service.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if err := service.VerifyPassword(hash, "correct-horse"); err != nil {
		t.Errorf("VerifyPassword rejected the right password: %v", err)
	}

	if err := service.VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	token, err := service.GenerateToken(42, "partner", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 42 || claims.Username != "partner" || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).GenerateToken(1, "u", "partner")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewService("secret-b", time.Hour).ValidateToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestTokenExpired(t *testing.T) {
	service := NewService("test-secret", -time.Minute)

	token, err := service.GenerateToken(1, "u", "partner")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := service.ValidateToken(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestValidateGarbage(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	if _, err := service.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token must be rejected")
	}
}
