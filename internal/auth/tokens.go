package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL = 30 * time.Minute
	tokenType       = "bearer"
)

var (
	ErrInvalidSignature = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
	ErrMalformedSubject = errors.New("token subject missing")
)

// TokenService issues and verifies stateless HS256 access tokens. Tokens are
// never stored; validity is decided by signature and expiry alone.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}, nil
}

func (s *TokenService) Issue(subject string) (Token, error) {
	return s.IssueWithTTL(subject, 0)
}

// IssueWithTTL falls back to the service TTL when ttl is not positive.
func (s *TokenService) IssueWithTTL(subject string, ttl time.Duration) (Token, error) {
	if strings.TrimSpace(subject) == "" {
		return Token{}, ErrMalformedSubject
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.nowFunc().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiryCeil(now.Add(ttl))),
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign jwt: %w", err)
	}

	return Token{
		AccessToken: encoded,
		TokenType:   tokenType,
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

// Verify returns the token subject. A token is expired from its exp second on.
func (s *TokenService) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrMalformedSubject
	}

	return subject, nil
}

// expiryCeil rounds up to the whole second exp is encoded with, so the token
// never expires before issue time plus ttl.
func expiryCeil(exp time.Time) time.Time {
	truncated := exp.Truncate(time.Second)
	if truncated.Equal(exp) {
		return exp
	}
	return truncated.Add(time.Second)
}
