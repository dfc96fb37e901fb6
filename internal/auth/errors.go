package auth

import "errors"

var (
	// ErrInvalidCredentials is returned on a login mismatch. It never says
	// which of username or password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated covers missing, malformed, badly signed and expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)
