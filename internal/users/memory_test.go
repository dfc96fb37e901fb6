package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
)

func ptr[T any](v T) *T { return &v }

func TestFixtureStore(t *testing.T) {
	s, err := NewFixtureStore(nil)
	require.NoError(t, err)
	ctx := context.Background()

	want := map[string]auth.Role{
		"admin":   auth.RoleAdmin,
		"chief":   auth.RoleChief,
		"manager": auth.RoleManager,
		"staff":   auth.RoleStaff,
	}
	for name, role := range want {
		u, err := s.FindByCredentials(ctx, name, "1234")
		require.NoError(t, err, name)
		assert.Equal(t, role, u.Role)
	}

	_, err = s.FindByCredentials(ctx, "admin", "12345")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = s.FindByCredentials(ctx, "nobody", "1234")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = s.FindByCredentials(ctx, "Admin", "1234")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "usernames are case-sensitive")
}

func TestFixtureStoresAreIndependent(t *testing.T) {
	a, err := NewFixtureStore(nil)
	require.NoError(t, err)
	b, err := NewFixtureStore(nil)
	require.NoError(t, err)

	require.NoError(t, a.Delete(context.Background(), 1))
	_, err = b.FindByID(context.Background(), 1)
	assert.NoError(t, err)
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	u, err := s.Create(ctx, NewUser{Username: "ayse", Password: "pw", Role: auth.RoleChief, Email: "ayse@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", got.Email)

	_, err = s.Create(ctx, NewUser{Username: "ayse", Password: "x", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	require.NoError(t, s.Update(ctx, u.ID, Update{
		Password: ptr("new"),
		Role:     ptr(auth.RoleManager),
		Email:    ptr(""),
	}))
	got, err = s.FindByCredentials(ctx, "ayse", "new")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, got.Role)
	assert.Empty(t, got.Email)

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.Delete(ctx, u.ID), ErrUserNotFound)
	assert.ErrorIs(t, s.Update(ctx, u.ID, Update{}), ErrUserNotFound)
}

func TestMemoryStoreRejectsInvalidUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, err := s.Create(ctx, NewUser{Username: "  ", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = s.Create(ctx, NewUser{Username: "x", Role: auth.Role("Owner")})
	assert.ErrorIs(t, err, ErrInvalidUser)

	u, err := s.Create(ctx, NewUser{Username: "x", Role: auth.RoleStaff})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Update(ctx, u.ID, Update{Username: ptr("")}), ErrInvalidUser)
	assert.ErrorIs(t, s.Update(ctx, u.ID, Update{Role: ptr(auth.Role("admin"))}), ErrInvalidUser)
}

func TestMemoryStoreRenameConflict(t *testing.T) {
	ctx := context.Background()
	s, err := NewFixtureStore(nil)
	require.NoError(t, err)

	staff, err := s.FindByUsername(ctx, "staff")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Update(ctx, staff.ID, Update{Username: ptr("admin")}), ErrUsernameTaken)
	assert.NoError(t, s.Update(ctx, staff.ID, Update{Username: ptr("staff")}))
}

func TestMemoryStoreListScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	for _, nu := range []NewUser{
		{Username: "root", Password: "a", Role: auth.RoleAdmin},
		{Username: "s1", Password: "a", Role: auth.RoleStaff},
		{Username: "s2", Password: "a", Role: auth.RoleStaff},
	} {
		_, err := s.Create(ctx, nu)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "root", all[0].Username)

	for _, caller := range []auth.Role{auth.RoleChief, auth.RoleStaff} {
		scope, err := auth.ListingScope(caller)
		require.NoError(t, err)
		staff, err := s.List(ctx, ListFilter{Role: scope})
		require.NoError(t, err)
		require.Len(t, staff, 2, caller.String())
		for _, u := range staff {
			assert.Equal(t, auth.RoleStaff, u.Role)
		}
	}
}

func TestMemoryStoreWithBcrypt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(auth.BcryptVerifier{Cost: 4})

	u, err := s.Create(ctx, NewUser{Username: "hash", Password: "secret", Role: auth.RoleStaff})
	require.NoError(t, err)
	assert.NotEqual(t, "secret", u.Password)

	_, err = s.FindByCredentials(ctx, "hash", "secret")
	assert.NoError(t, err)
	_, err = s.FindByCredentials(ctx, "hash", "Secret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
