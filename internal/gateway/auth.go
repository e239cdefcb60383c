package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token sent with each request. An empty
// token means no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken sends a fixed API key.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// JWTSource mints short-lived HS256 tokens and reuses them until shortly
// before expiry.
type JWTSource struct {
	secret  []byte
	issuer  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached string
	expiry time.Time
}

const jwtRefreshMargin = 30 * time.Second

func NewJWTSource(secret, issuer, subject string, ttl time.Duration) (*JWTSource, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= jwtRefreshMargin {
		ttl = 15 * time.Minute
	}
	return &JWTSource{
		secret:  []byte(secret),
		issuer:  issuer,
		subject: subject,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (s *JWTSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != "" && now.Add(jwtRefreshMargin).Before(s.expiry) {
		return s.cached, nil
	}
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.cached, s.expiry = signed, exp
	return signed, nil
}
