package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ConfigurationError is fatal: the process refuses to start.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Validate collects every problem so a bad deployment is fixed in one pass.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &ConfigurationError{Field: envPrefix + field, Reason: reason})
	}

	switch {
	case c.JWT.Key == "":
		fail("JWT_KEY", "signing key is required")
	case len(c.JWT.Key) < MinKeyLength:
		fail("JWT_KEY", fmt.Sprintf("signing key must be at least %d bytes", MinKeyLength))
	}
	if c.JWT.Issuer == "" {
		fail("JWT_ISSUER", "issuer is required")
	}
	if c.JWT.Audience == "" {
		fail("JWT_AUDIENCE", "audience is required")
	}

	if c.Proxy.Enabled {
		if c.Proxy.DownstreamBaseURL == "" {
			fail("DOWNSTREAM_BASE_URL", "required when the proxy is enabled")
		} else if u, err := url.Parse(c.Proxy.DownstreamBaseURL); err != nil ||
			(u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail("DOWNSTREAM_BASE_URL", "must be an absolute http(s) URL")
		}
	}

	if c.LoginRateLimit < 0 {
		fail("LOGIN_RATE_LIMIT", "must not be negative")
	}

	switch c.Store.Kind {
	case "memory":
	case "postgres":
		if c.Store.DBDSN == "" {
			fail("DB_DSN", "required for the postgres user store")
		}
	default:
		fail("USER_STORE", fmt.Sprintf("unknown store %q (valid: memory, postgres)", c.Store.Kind))
	}
	switch c.Store.Credentials {
	case "plaintext", "bcrypt":
	default:
		fail("CREDENTIALS", fmt.Sprintf("unknown mode %q (valid: plaintext, bcrypt)", c.Store.Credentials))
	}
	return errors.Join(errs...)
}
