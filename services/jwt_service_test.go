package services

import (
	"errors"
	"testing"

	"rental-platform-server/config"
	"rental-platform-server/models"
)

func newTestJWTService(t *testing.T) (*JWTService, *models.User) {
	t.Helper()
	db := newTestDB(t)
	js := NewJWTService(db, config.JWTConfig{
		Secret:            "test-secret",
		ExpiryHours:       1,
		RefreshExpiryDays: 7,
	})
	return js, createUser(t, db, "tenant@example.com", models.UserTypeTenant)
}

func TestGenerateAndValidateToken(t *testing.T) {
	js, user := newTestJWTService(t)

	pair, err := js.GenerateTokenPair(user, DeviceInfo{UserAgent: "go-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 3600 {
		t.Fatalf("unexpected pair metadata %s / %d", pair.TokenType, pair.ExpiresIn)
	}

	claims, err := js.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != user.ID || claims.UserType != string(models.UserTypeTenant) {
		t.Fatalf("expected claims for user %d, got %d/%s", user.ID, claims.UserID, claims.UserType)
	}

	t.Run("other secret is rejected", func(t *testing.T) {
		other := NewJWTService(js.db, config.JWTConfig{Secret: "another", ExpiryHours: 1, RefreshExpiryDays: 1})
		if _, err := other.ValidateAccessToken(pair.AccessToken); err == nil {
			t.Fatal("expected validation to fail with a different secret")
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		if _, err := js.ValidateAccessToken("not-a-token"); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestRefreshRotation(t *testing.T) {
	js, user := newTestJWTService(t)

	pair, err := js.GenerateTokenPair(user, DeviceInfo{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rotated, err := js.RefreshTokenPair(pair.RefreshToken, DeviceInfo{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	if _, err := js.RefreshTokenPair(pair.RefreshToken, DeviceInfo{}); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected reuse to fail with %v, got %v", ErrRefreshTokenInvalid, err)
	}
	if _, err := js.RefreshTokenPair("unknown", DeviceInfo{}); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected %v, got %v", ErrRefreshTokenNotFound, err)
	}

	t.Run("inactive users cannot refresh", func(t *testing.T) {
		js.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false)
		if _, err := js.RefreshTokenPair(rotated.RefreshToken, DeviceInfo{}); !errors.Is(err, ErrRefreshTokenInvalid) {
			t.Fatalf("expected %v, got %v", ErrRefreshTokenInvalid, err)
		}
	})
}

func TestRevokeAndCleanup(t *testing.T) {
	js, user := newTestJWTService(t)

	first, _ := js.GenerateTokenPair(user, DeviceInfo{})
	second, _ := js.GenerateTokenPair(user, DeviceInfo{})

	if err := js.RevokeRefreshToken(user.ID+1, first.RefreshToken); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected %v for another user's token, got %v", ErrRefreshTokenNotFound, err)
	}
	if err := js.RevokeRefreshToken(user.ID, first.RefreshToken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := js.ValidateRefreshToken(first.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
	if _, err := js.ValidateRefreshToken(second.RefreshToken); err != nil {
		t.Fatalf("expected second token to stay valid, got %v", err)
	}

	if err := js.RevokeAllUserTokens(user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err := js.CleanupExpiredTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 tokens removed, got %d", removed)
	}
}
