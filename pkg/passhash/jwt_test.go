package passhash

import (
	"errors"
	"testing"
	"time"

	"skypath/pkg/config"
)

func TestJWTManager_GenerateAccessToken(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:         "test-secret-key",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "test-issuer",
	})

	token, err := manager.GenerateAccessToken("user-123", "testuser")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("expected non-empty token")
	}

	// Token should have 3 parts (header.payload.signature)
	parts := 0
	for _, c := range token {
		if c == '.' {
			parts++
		}
	}
	if parts != 2 {
		t.Errorf("expected 2 dots in JWT, got %d", parts)
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:         "test-secret-key",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "test-issuer",
	})

	token, _ := manager.GenerateAccessToken("user-123", "testuser")

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("expected userID 'user-123', got %s", claims.UserID)
	}
	if claims.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %s", claims.Username)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("expected access token type, got %s", claims.TokenType)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("expected issuer 'test-issuer', got %s", claims.Issuer)
	}
}

func TestJWTManager_ValidateToken_Invalid(t *testing.T) {
	manager := NewJWTManager(nil)

	_, err := manager.ValidateToken("invalid-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:         "test-secret",
		AccessTokenExpiry: 1 * time.Millisecond, // Very short expiry
		Issuer:            "test",
	})

	token, _ := manager.GenerateAccessToken("user", "username")

	// Wait for expiration
	time.Sleep(10 * time.Millisecond)

	_, err := manager.ValidateToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	manager1 := NewJWTManager(&JWTConfig{
		SecretKey:         "secret-1",
		AccessTokenExpiry: 15 * time.Minute,
	})
	manager2 := NewJWTManager(&JWTConfig{
		SecretKey:         "secret-2",
		AccessTokenExpiry: 15 * time.Minute,
	})

	token, _ := manager1.GenerateAccessToken("user", "username")

	_, err := manager2.ValidateToken(token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestJWTManager_GenerateRefreshToken(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:          "test-secret",
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	})

	token, err := manager.GenerateRefreshToken("user-123", "testuser")
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	if token == "" {
		t.Error("expected non-empty token")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("expected userID 'user-123', got %s", claims.UserID)
	}
}

func TestJWTManager_RefreshAccessToken(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	})

	refreshToken, _ := manager.GenerateRefreshToken("user-123", "testuser")

	newAccessToken, claims, err := manager.RefreshAccessToken(refreshToken)
	if err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	if newAccessToken == "" {
		t.Error("expected non-empty new access token")
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected userID 'user-123', got %s", claims.UserID)
	}
}

func TestJWTManager_RefreshAccessToken_Invalid(t *testing.T) {
	manager := NewJWTManager(nil)

	_, _, err := manager.RefreshAccessToken("invalid-refresh-token")
	if err == nil {
		t.Error("expected error for invalid refresh token")
	}
}

func TestJWTManager_GetAccessTokenExpiry(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		AccessTokenExpiry: 15 * time.Minute,
	})

	expiry := manager.GetAccessTokenExpiry()
	expected := int64(15 * 60)

	if expiry != expected {
		t.Errorf("expected %d seconds, got %d", expected, expiry)
	}
}

func TestDefaultJWTConfig(t *testing.T) {
	cfg := DefaultJWTConfig()

	if cfg.SecretKey == "" {
		t.Error("expected default secret key")
	}
	if cfg.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("expected 15m, got %v", cfg.AccessTokenExpiry)
	}
	if cfg.RefreshTokenExpiry != 7*24*time.Hour {
		t.Errorf("expected 7d, got %v", cfg.RefreshTokenExpiry)
	}
	if cfg.Issuer != "skypath-auth" {
		t.Errorf("expected 'skypath-auth', got %s", cfg.Issuer)
	}
}

func TestNewJWTManager_NilConfig(t *testing.T) {
	manager := NewJWTManager(nil)

	token, err := manager.GenerateAccessToken("user", "username")
	if err != nil {
		t.Fatalf("should work with nil config: %v", err)
	}

	if token == "" {
		t.Error("expected token to be generated")
	}
}

func TestJWTManager_TokenTypes(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		SecretKey:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	})

	pair, err := manager.IssuePair("7", "alice")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 900 {
		t.Errorf("unexpected pair %+v", pair)
	}

	if _, err := manager.ValidateAccessToken(pair.AccessToken); err != nil {
		t.Errorf("access token rejected: %v", err)
	}
	if _, err := manager.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh token must not pass as access, got %v", err)
	}
	if _, _, err := manager.RefreshAccessToken(pair.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("access token must not refresh, got %v", err)
	}
}

func TestJWTConfigFromAuth(t *testing.T) {
	cfg := JWTConfigFromAuth(&config.AuthConfig{
		JWTSecret:      "s3cret",
		Issuer:         "skypath-test",
		AccessTokenTTL: time.Minute,
	})

	if cfg.SecretKey != "s3cret" || cfg.Issuer != "skypath-test" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.AccessTokenExpiry != time.Minute {
		t.Errorf("access ttl = %v", cfg.AccessTokenExpiry)
	}
	if cfg.RefreshTokenExpiry != 7*24*time.Hour {
		t.Errorf("zero refresh ttl should keep default, got %v", cfg.RefreshTokenExpiry)
	}
}
