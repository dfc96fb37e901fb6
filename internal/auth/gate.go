package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Gate validates inbound tokens and applies tier requirements.
type Gate struct {
	settings TokenSettings
	parser   *jwt.Parser
	now      func() time.Time
}

func NewGate(settings TokenSettings, opts ...Option) *Gate {
	o := buildOptions(opts)
	return &Gate{
		settings: settings,
		now:      o.now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(settings.Issuer),
			jwt.WithAudience(settings.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(o.now),
		),
	}
}

// Authenticate checks signature, issuer, audience and expiry, then parses the
// role claim. Token problems yield ErrUnauthenticated; a token that is fine
// but carries an unknown role yields ErrForbidden.
func (g *Gate) Authenticate(raw string) (*Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	claims := &Claims{}
	tok, err := g.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return g.settings.Key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	// The parser accepts now == exp; expiry is exclusive here.
	if !g.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, jwt.ErrTokenExpired)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing identity claim", ErrUnauthenticated)
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return &Principal{
		Username: claims.Username,
		Role:     role,
		Email:    claims.Email,
		Phone:    claims.Phone,
	}, nil
}

// Authorize authenticates raw and requires the role to fall in one of tiers.
// With no tiers any valid role is accepted.
func (g *Gate) Authorize(raw string, tiers ...Tier) (*Principal, error) {
	p, err := g.Authenticate(raw)
	if err != nil {
		return nil, err
	}
	if err := Permit(p, tiers...); err != nil {
		return nil, err
	}
	return p, nil
}

func Permit(p *Principal, tiers ...Tier) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.Role.Tier() == TierNone {
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
	if len(tiers) > 0 && !slices.Contains(tiers, p.Role.Tier()) {
		return fmt.Errorf("%w: role %s not permitted", ErrForbidden, p.Role)
	}
	return nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
