package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func hsConfig() Config {
	return Config{
		SigningMethod: MethodHS256,
		Secret:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goiam",
		Audience:      "goiam-clients",
	}
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSSigner(t *testing.T, opts ...Option) *Signer {
	t.Helper()
	s, err := NewSigner(hsConfig(), opts...)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func TestAccessRoundTrip(t *testing.T) {
	s := newHSSigner(t)

	token, err := s.SignAccess("acc-1", time.Minute, AccessClaims{
		Username: "alice01",
		Email:    "alice@example.com",
		Role:     "regular",
	})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}

	claims, err := s.VerifyAccess(token)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "acc-1" || claims.Username != "alice01" || claims.Email != "alice@example.com" || claims.Role != "regular" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "goiam" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "goiam-clients" {
		t.Fatalf("unexpected audience %v", claims.Audience)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected exp and iat to be stamped")
	}
}

func TestRefreshRoundTripCarriesOnlyRotationID(t *testing.T) {
	s := newHSSigner(t)

	token, err := s.SignRefresh("acc-1", time.Hour, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	claims, err := s.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if claims.Subject != "acc-1" || claims.RefreshTokenID != "rt-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	raw := gjwt.MapClaims{}
	if _, _, err := gjwt.NewParser().ParseUnverified(token, raw); err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	for _, forbidden := range []string{"username", "email", "role"} {
		if _, ok := raw[forbidden]; ok {
			t.Fatalf("refresh token must not carry %q", forbidden)
		}
	}
}

func TestVerifyRejectsWrongClaimShape(t *testing.T) {
	s := newHSSigner(t)

	access, err := s.SignAccess("acc-1", time.Minute, AccessClaims{Username: "alice01"})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	if _, err := s.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected access token to be rejected as refresh, got %v", err)
	}

	refresh, err := s.SignRefresh("acc-1", time.Minute, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	if _, err := s.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh token to be rejected as access, got %v", err)
	}
}

func TestVerifyAccessRejectsRotationID(t *testing.T) {
	s := newHSSigner(t)

	hybrid, err := s.Sign("acc-1", time.Minute, &AccessClaims{Username: "alice01", RefreshTokenID: "rt-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.VerifyAccess(hybrid); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected access payload with refreshTokenId to be rejected, got %v", err)
	}

	plain, err := s.SignAccess("acc-1", time.Minute, AccessClaims{Username: "alice01"})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	claims, err := s.VerifyAccess(plain)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.RefreshTokenID != "" {
		t.Fatalf("access token leaked refreshTokenId %q", claims.RefreshTokenID)
	}
}

func TestSignRefreshWithExpiryMatchesClaim(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 750_000_000, time.UTC)
	s := newHSSigner(t, WithClock(func() time.Time { return now }))

	token, exp, err := s.SignRefreshWithExpiry("acc-1", time.Hour, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	want := now.Add(time.Hour).Truncate(time.Second)
	if !exp.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, exp)
	}

	claims, err := s.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("encoded exp %v differs from returned %v", claims.ExpiresAt.Time, exp)
	}
}

func TestVerifyExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := newHSSigner(t, WithClock(func() time.Time { return clock() }))

	token, err := s.SignRefresh("acc-1", time.Minute, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	clock = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = s.VerifyRefresh(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Fatal("expiry must be distinguishable from invalidity")
	}
}

func TestVerifyIssuerAudienceAndSecretBinding(t *testing.T) {
	s := newHSSigner(t)
	token, err := s.SignAccess("acc-1", time.Minute, AccessClaims{Username: "alice01"})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "issuer", mutate: func(c *Config) { c.Issuer = "other" }},
		{name: "audience", mutate: func(c *Config) { c.Audience = "other" }},
		{name: "secret", mutate: func(c *Config) { c.Secret = []byte("fedcba9876543210fedcba9876543210") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hsConfig()
			tt.mutate(&cfg)
			other, err := NewSigner(cfg)
			if err != nil {
				t.Fatalf("new signer: %v", err)
			}
			if _, err := other.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	s, err := NewSigner(Config{
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
		Issuer:        "goiam",
		Audience:      "goiam-clients",
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	hs := newHSSigner(t)
	token, err := hs.SignAccess("acc-1", time.Minute, AccessClaims{Username: "alice01"})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}

	if _, err := s.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestEd25519WithKeyID(t *testing.T) {
	pub, priv := newEdKeys(t)
	s, err := NewSigner(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "goiam",
		Audience:      "goiam-clients",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	token, err := s.SignRefresh("acc-1", time.Minute, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	if _, err := s.VerifyRefresh(token); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}

	rotated, err := NewSigner(Config{
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
		Issuer:        "goiam",
		Audience:      "goiam-clients",
		KeyID:         "k2",
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if _, err := rotated.VerifyRefresh(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected unknown kid to be rejected, got %v", err)
	}
	if _, err := rotated.SignRefresh("acc-1", time.Minute, "rt-1"); err == nil {
		t.Fatal("expected verify-only signer to refuse signing")
	}
}

func TestLeewayAcceptsRecentlyExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cfg := hsConfig()
	cfg.Leeway = 30 * time.Second
	s, err := NewSigner(cfg, WithClock(func() time.Time { return clock() }))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	token, err := s.SignRefresh("acc-1", time.Minute, "rt-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	clock = func() time.Time { return now.Add(70 * time.Second) }
	if _, err := s.VerifyRefresh(token); err != nil {
		t.Fatalf("expected token inside leeway to verify: %v", err)
	}
}

func TestNewSignerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing issuer", mutate: func(c *Config) { c.Issuer = " " }},
		{name: "missing audience", mutate: func(c *Config) { c.Audience = "" }},
		{name: "short secret", mutate: func(c *Config) { c.Secret = []byte("short") }},
		{name: "leeway too large", mutate: func(c *Config) { c.Leeway = 3 * time.Minute }},
		{name: "unknown method", mutate: func(c *Config) { c.SigningMethod = "rs256" }},
		{name: "ed25519 without keys", mutate: func(c *Config) { c.SigningMethod = MethodEd25519 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hsConfig()
			tt.mutate(&cfg)
			if _, err := NewSigner(cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	s := newHSSigner(t)

	if _, err := s.SignAccess("", time.Minute, AccessClaims{Username: "u"}); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
	if _, err := s.SignAccess("acc-1", 0, AccessClaims{Username: "u"}); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
	if _, err := s.SignRefresh("acc-1", time.Minute, ""); err == nil {
		t.Fatal("expected empty refresh id to be rejected")
	}
}
