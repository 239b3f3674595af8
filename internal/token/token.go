// Package token mints and validates the signed bearer tokens used by the API.
//
// Every token is an HS256 JWT whose scope claim names its purpose. A token is
// only accepted by the validation path of the purpose it was minted for, so an
// email-verification token can never be replayed as a password-reset token and
// a refresh token can never authorize an API call.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose is the value of the scope claim.
type Purpose string

const (
	Access        Purpose = "access_token"
	Refresh       Purpose = "refresh_token"
	EmailVerify   Purpose = "email_token"
	PasswordReset Purpose = "reset_password_token"
)

var (
	// ErrInvalidToken covers malformed, tampered and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidScope is returned for a well-formed token minted for another purpose.
	ErrInvalidScope = errors.New("invalid scope for token")
)

// Claims is the JWT payload.
type Claims struct {
	Scope Purpose `json:"scope"`
	jwt.RegisteredClaims
}

// TTLs holds the default lifetime per purpose.
type TTLs struct {
	Access        time.Duration
	Refresh       time.Duration
	EmailVerify   time.Duration
	PasswordReset time.Duration
}

// DefaultTTLs are used for any zero field in the TTLs passed to New.
var DefaultTTLs = TTLs{
	Access:        60 * time.Minute,
	Refresh:       7 * 24 * time.Hour,
	EmailVerify:   7 * 24 * time.Hour,
	PasswordReset: 10 * time.Minute,
}

// Service issues and validates tokens with a single process-wide secret.
type Service struct {
	secret []byte
	ttls   TTLs
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. Zero TTL fields fall back to DefaultTTLs.
func New(secret string, ttls TTLs, opts ...Option) *Service {
	if ttls.Access <= 0 {
		ttls.Access = DefaultTTLs.Access
	}
	if ttls.Refresh <= 0 {
		ttls.Refresh = DefaultTTLs.Refresh
	}
	if ttls.EmailVerify <= 0 {
		ttls.EmailVerify = DefaultTTLs.EmailVerify
	}
	if ttls.PasswordReset <= 0 {
		ttls.PasswordReset = DefaultTTLs.PasswordReset
	}
	s := &Service{secret: []byte(secret), ttls: ttls, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the default lifetime for purpose.
func (s *Service) TTL(p Purpose) time.Duration {
	switch p {
	case Access:
		return s.ttls.Access
	case Refresh:
		return s.ttls.Refresh
	case EmailVerify:
		return s.ttls.EmailVerify
	case PasswordReset:
		return s.ttls.PasswordReset
	}
	return 0
}

// Issue signs a token for subject with the default TTL of purpose.
func (s *Service) Issue(p Purpose, subject string) (string, time.Time, error) {
	return s.IssueWithTTL(p, subject, s.TTL(p))
}

// IssueWithTTL signs a token for subject that expires ttl from now. The jti
// claim makes two tokens minted within the same second distinct, which the
// refresh rotation relies on.
func (s *Service) IssueWithTTL(p Purpose, subject string, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Scope: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies signature, algorithm and expiry, then checks that the
// scope claim equals expected. It returns the subject.
func (s *Service) Validate(raw string, expected Purpose) (string, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Scope != expected {
		return "", ErrInvalidScope
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
