package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultIssuer is the iss claim of bearer tokens issued by the server.
	DefaultIssuer = "tenancy"

	// DefaultTokenTTL bounds the lifetime of bearer tokens.
	DefaultTokenTTL = 15 * time.Minute
)

// TokenSigner issues and verifies short-lived HS256 bearer tokens.
// The subject claim carries the user ID.
type TokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner creates a token signer. The secret must be at least 32 bytes.
func NewTokenSigner(secret []byte, issuer string, ttl time.Duration) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("token signing secret must be at least 32 bytes")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenSigner{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for the given user, returning the token and its expiry.
func (s *TokenSigner) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("subject is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify validates a token and returns its subject.
func (s *TokenSigner) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}
