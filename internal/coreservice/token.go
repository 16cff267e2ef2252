package coreservice

import (
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenAudience = "system@hikick.kr"
	// tokenRefreshMargin renews a cached token this long before it expires
	// so it cannot lapse while a request is in flight.
	tokenRefreshMargin = time.Minute
	tokenLifetime      = time.Hour

	// InternalSubject is the subject other services use to call this one.
	InternalSubject = "coreservice-ride"

	maxInternalTokenLifetime = 6 * time.Hour
)

// TokenSource signs short-lived HS256 tokens for one destination service and
// reuses the last token until it expires.
type TokenSource struct {
	subject string
	issuer  string
	key     []byte
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source for subject (e.g. "coreservice-accounts").
func NewTokenSource(subject, issuer, key string) *TokenSource {
	return &TokenSource{
		subject: subject,
		issuer:  issuer,
		key:     []byte(key),
		now:     time.Now,
	}
}

// Token returns a valid bearer token, signing a new one when needed.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(tokenRefreshMargin).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", s.subject, err)
	}

	s.token = token
	s.expires = expires
	return token, nil
}

// Caller identifies the service behind a verified internal token.
type Caller struct {
	Issuer   string
	Audience string
}

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks.
	ErrInvalidToken = errors.New("invalid internal token")

	// ErrTokenLifetime is returned for tokens issued for longer than allowed.
	ErrTokenLifetime = errors.New("internal token lifetime too long")
)

// VerifyInternalToken checks a token presented to the internal API: HS256
// signed with key, subject coreservice-ride, an issuer, an e-mail audience
// and a lifetime of at most six hours.
func VerifyInternalToken(tokenString, key string) (*Caller, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	},
		jwt.WithSubject(InternalSubject),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Issuer == "" || len(claims.Audience) == 0 || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if _, err := mail.ParseAddress(claims.Audience[0]); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > maxInternalTokenLifetime {
		return nil, ErrTokenLifetime
	}

	return &Caller{Issuer: claims.Issuer, Audience: claims.Audience[0]}, nil
}
