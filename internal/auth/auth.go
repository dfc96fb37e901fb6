package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenLifetime = 60 * time.Minute

// TokenSettings is shared by the issuer and the gate. It is built once at
// startup and never mutated.
type TokenSettings struct {
	Key      []byte
	Issuer   string
	Audience string
	Lifetime time.Duration
}

func (s TokenSettings) lifetime() time.Duration {
	if s.Lifetime <= 0 {
		return DefaultTokenLifetime
	}
	return s.Lifetime
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now for issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Issuer verifies credentials and signs tokens. It keeps no state between calls.
type Issuer struct {
	users    UserRepository
	settings TokenSettings
	now      func() time.Time
}

func NewIssuer(users UserRepository, settings TokenSettings, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{
		users:    users,
		settings: settings,
		now:      o.now,
	}
}

func (s *Issuer) IssueToken(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user)
}

func (s *Issuer) issueToken(user *User) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		Email:    user.Email,
		Phone:    user.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.settings.Issuer,
			Subject:   user.Username,
			Audience:  jwt.ClaimStrings{s.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.settings.lifetime())),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.settings.Key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
