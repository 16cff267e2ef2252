package coreservice

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenSource_CachesUntilExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	src := NewTokenSource("coreservice-accounts", "https://ride.example", "secret")
	src.now = func() time.Time { return now }

	first, err := src.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(30 * time.Minute)
	second, _ := src.Token()
	if first != second {
		t.Error("expected cached token before expiry")
	}

	now = now.Add(31 * time.Minute)
	third, _ := src.Token()
	if third == first {
		t.Error("expected a new token after expiry")
	}
}

func TestTokenSource_RefreshesBeforeExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	src := NewTokenSource("coreservice-accounts", "https://ride.example", "secret")
	src.now = func() time.Time { return now }

	first, _ := src.Token()

	now = now.Add(tokenLifetime - 2*tokenRefreshMargin)
	if second, _ := src.Token(); second != first {
		t.Error("expected cached token outside the refresh margin")
	}

	now = now.Add(tokenRefreshMargin + 30*time.Second)
	if third, _ := src.Token(); third == first {
		t.Error("expected a new token inside the refresh margin")
	}
}

func TestTokenSource_Claims(t *testing.T) {
	src := NewTokenSource("coreservice-payments", "https://ride.example", "secret")
	token, err := src.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "coreservice-payments" || claims.Issuer != "https://ride.example" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != tokenAudience {
		t.Errorf("unexpected audience: %v", claims.Audience)
	}
}

func signInternal(t *testing.T, claims jwt.RegisteredClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestVerifyInternalToken(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   InternalSubject,
		Issuer:    "https://accounts.example",
		Audience:  jwt.ClaimStrings{"ops@hikick.kr"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name    string
		mutate  func(c *jwt.RegisteredClaims)
		key     string
		wantErr error
	}{
		{name: "valid", mutate: func(*jwt.RegisteredClaims) {}, key: "key"},
		{name: "wrong key", mutate: func(*jwt.RegisteredClaims) {}, key: "other", wantErr: ErrInvalidToken},
		{name: "wrong subject", mutate: func(c *jwt.RegisteredClaims) { c.Subject = "coreservice-accounts" }, key: "key", wantErr: ErrInvalidToken},
		{name: "missing issuer", mutate: func(c *jwt.RegisteredClaims) { c.Issuer = "" }, key: "key", wantErr: ErrInvalidToken},
		{name: "audience not email", mutate: func(c *jwt.RegisteredClaims) { c.Audience = jwt.ClaimStrings{"ops"} }, key: "key", wantErr: ErrInvalidToken},
		{name: "expired", mutate: func(c *jwt.RegisteredClaims) {
			c.IssuedAt = jwt.NewNumericDate(now.Add(-2 * time.Hour))
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
		}, key: "key", wantErr: ErrInvalidToken},
		{name: "too long lived", mutate: func(c *jwt.RegisteredClaims) {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(7 * time.Hour))
		}, key: "key", wantErr: ErrTokenLifetime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid
			tt.mutate(&claims)
			token := signInternal(t, claims, tt.key)

			caller, err := VerifyInternalToken(token, "key")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if caller.Audience != "ops@hikick.kr" {
				t.Errorf("unexpected caller: %+v", caller)
			}
		})
	}
}
