package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
)

var columns = []string{"id", "username", "password", "role", "email", "phone", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresStore(db, nil), mock
}

func TestPostgresFindByCredentials(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta("FROM users WHERE username = $1")

	mock.ExpectQuery(q).WithArgs("manager").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "manager", "1234", "manager", "m@example.com", nil, created))
	u, err := s.FindByCredentials(context.Background(), "manager", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, auth.RoleManager, u.Role)
	assert.Equal(t, "m@example.com", u.Email)
	assert.Empty(t, u.Phone)

	mock.ExpectQuery(q).WithArgs("manager").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "manager", "1234", "Manager", nil, nil, created))
	_, err = s.FindByCredentials(context.Background(), "manager", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	mock.ExpectQuery(q).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(columns))
	_, err = s.FindByCredentials(context.Background(), "ghost", "1234")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	boom := errors.New("connection reset")
	mock.ExpectQuery(q).WithArgs("admin").WillReturnError(boom)
	_, err = s.FindByCredentials(context.Background(), "admin", "1234")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestPostgresFindByID(t *testing.T) {
	s, mock := newMockStore(t)
	q := regexp.QuoteMeta("FROM users WHERE id = $1")

	mock.ExpectQuery(q).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows(columns))
	_, err := s.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresList(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 ORDER BY id")).WithArgs("Staff").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "s1", "x", "Staff", nil, nil, now).
			AddRow(5, "s2", "x", "Staff", nil, "+1", now))
	list, err := s.List(context.Background(), ListFilter{Role: auth.RoleStaff})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "+1", list[1].Phone)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).WillReturnRows(sqlmock.NewRows(columns))
	list, err = s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPostgresCreate(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	q := regexp.QuoteMeta("INSERT INTO users")

	mock.ExpectQuery(q).
		WithArgs("zeynep", "pw", "Chief", "z@example.com", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "zeynep", "pw", "Chief", "z@example.com", nil, now))
	u, err := s.Create(context.Background(), NewUser{Username: "zeynep", Password: "pw", Role: auth.RoleChief, Email: "z@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	mock.ExpectQuery(q).WillReturnError(&pq.Error{Code: pgerrcode.UniqueViolation, Message: "duplicate key"})
	_, err = s.Create(context.Background(), NewUser{Username: "zeynep", Password: "pw", Role: auth.RoleChief})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.Create(context.Background(), NewUser{Username: "", Role: auth.RoleChief})
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestPostgresUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	q := regexp.QuoteMeta("UPDATE users SET")

	mock.ExpectExec(q).
		WithArgs(int64(4), nil, nil, "Manager", "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Update(context.Background(), 4, Update{Role: ptr(auth.RoleManager), Email: ptr("")}))

	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Update(context.Background(), 99, Update{Username: ptr("x")}), ErrUserNotFound)

	mock.ExpectExec(q).WillReturnError(&pq.Error{Code: pgerrcode.UniqueViolation})
	assert.ErrorIs(t, s.Update(context.Background(), 4, Update{Username: ptr("admin")}), ErrUsernameTaken)
}

func TestPostgresConstraintViolationsAreInvalidInput(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: pgerrcode.CheckViolation, Message: "users_role_check"})
	_, err := s.Create(context.Background(), NewUser{Username: "x", Password: "pw", Role: auth.RoleStaff})
	assert.ErrorIs(t, err, ErrInvalidUser)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnError(&pq.Error{Code: pgerrcode.StringDataRightTruncationDataException, Message: "value too long for type character varying(20)"})
	err = s.Update(context.Background(), 4, Update{Phone: ptr("+90 555 111 2233 4455 6677")})
	assert.ErrorIs(t, err, ErrInvalidUser)
	assert.NotErrorIs(t, err, ErrUsernameTaken)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnError(&pq.Error{Code: pgerrcode.ForeignKeyViolation})
	err = s.Update(context.Background(), 4, Update{Phone: ptr("1")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidUser)
}

func TestPostgresDelete(t *testing.T) {
	s, mock := newMockStore(t)
	q := regexp.QuoteMeta("DELETE FROM users WHERE id = $1")

	mock.ExpectExec(q).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), 4))

	mock.ExpectExec(q).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), 4), ErrUserNotFound)
}
