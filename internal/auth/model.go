package auth

import (
	"context"
	"time"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	// Password holds whatever the configured CredentialVerifier stores:
	// the plain secret or a bcrypt hash.
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated identity extracted from a valid token.
type Principal struct {
	Username string
	Role     Role
	Email    string
	Phone    string
}

// UserRepository is the lookup surface the issuer needs from the user store.
type UserRepository interface {
	// FindByCredentials returns the single user whose username and password
	// both match, or ErrInvalidCredentials.
	FindByCredentials(ctx context.Context, username, password string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}
