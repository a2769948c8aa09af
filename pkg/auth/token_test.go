package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "townie",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()
	shopID := uuid.New()

	payload := AccessTokenPayload{
		UserID: userID,
		ShopID: &shopID,
		Role:   enums.UserRoleVendor,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.ShopID == nil || *claims.ShopID != shopID {
		t.Errorf("shop id = %v, want %s", claims.ShopID, shopID)
	}
	if claims.Role != enums.UserRoleVendor {
		t.Errorf("role = %s, want vendor", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %s, want %s", claims.Issuer, cfg.Issuer)
	}
}

func TestCustomerTokenCarriesNoShop(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "townie",
		ExpirationMinutes: 30,
	}

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ShopID != nil {
		t.Errorf("expected nil shop id for customer token, got %s", *claims.ShopID)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "townie",
		ExpirationMinutes: 30,
	}

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "townie",
		ExpirationMinutes: 1,
	}

	token, err := MintAccessToken(cfg, time.Now().UTC().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected parse to fail for expired token")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "expired") {
		t.Errorf("expected expiry error, got %v", err)
	}
}
