package users

import (
	"context"
	"errors"
	"strings"

	"authgate/internal/auth"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrInvalidUser   = errors.New("invalid user")
)

// Repository is the full user store. The auth package only sees the
// auth.UserRepository subset.
type Repository interface {
	auth.UserRepository
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	List(ctx context.Context, f ListFilter) ([]auth.User, error)
	Create(ctx context.Context, u NewUser) (*auth.User, error)
	Update(ctx context.Context, id int64, u Update) error
	Delete(ctx context.Context, id int64) error
}

// ListFilter narrows List. A zero Role lists everyone.
type ListFilter struct {
	Role auth.Role
}

type NewUser struct {
	Username string
	Password string
	Role     auth.Role
	Email    string
	Phone    string
}

func (u NewUser) validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.Join(ErrInvalidUser, errors.New("username is required"))
	}
	if !u.Role.Valid() {
		return errors.Join(ErrInvalidUser, errors.New("role is invalid"))
	}
	return nil
}

// Update is a partial change; nil fields are left untouched.
type Update struct {
	Username *string
	Password *string
	Role     *auth.Role
	Email    *string
	Phone    *string
}

func (u Update) validate() error {
	if u.Username != nil && strings.TrimSpace(*u.Username) == "" {
		return errors.Join(ErrInvalidUser, errors.New("username cannot be blank"))
	}
	if u.Role != nil && !u.Role.Valid() {
		return errors.Join(ErrInvalidUser, errors.New("role is invalid"))
	}
	return nil
}

// findByCredentials is shared by every store: usernames are unique, so the
// match is the user with that name whose stored secret verifies.
func findByCredentials(ctx context.Context, r Repository, v auth.CredentialVerifier, username, password string) (*auth.User, error) {
	u, err := r.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if !v.Verify(u.Password, password) {
		return nil, auth.ErrInvalidCredentials
	}
	return u, nil
}
