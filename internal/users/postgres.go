package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"authgate/internal/auth"
)

// PostgresStore keeps users in the users table (see sql/schema.sql).
type PostgresStore struct {
	db       *sql.DB
	verifier auth.CredentialVerifier
}

func NewPostgresStore(db *sql.DB, verifier auth.CredentialVerifier) *PostgresStore {
	if verifier == nil {
		verifier = auth.PlaintextVerifier{}
	}
	return &PostgresStore{db: db, verifier: verifier}
}

const userColumns = `id, username, password, role, email, phone, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	var (
		u            auth.User
		role         string
		email, phone sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &role, &email, &phone, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	if parsed, err := auth.ParseRole(role); err == nil {
		u.Role = parsed
	}
	u.Email = email.String
	u.Phone = phone.String
	return &u, nil
}

func (s *PostgresStore) FindByCredentials(ctx context.Context, username, password string) (*auth.User, error) {
	return findByCredentials(ctx, s, s.verifier, username, password)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.findOne(ctx, q, id)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return s.findOne(ctx, q, username)
}

func (s *PostgresStore) findOne(ctx context.Context, q string, arg any) (*auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]auth.User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if f.Role != "" {
		q += ` WHERE role = $1`
		args = append(args, string(f.Role))
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []auth.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, nu NewUser) (*auth.User, error) {
	if err := nu.validate(); err != nil {
		return nil, err
	}
	secret, err := s.verifier.Hash(nu.Password)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO users (username, password, role, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := s.db.QueryRowContext(ctx, q,
		nu.Username,
		secret,
		string(nu.Role),
		nullString(nu.Email),
		nullString(nu.Phone),
		time.Now().UTC(),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, up Update) error {
	if err := up.validate(); err != nil {
		return err
	}
	var secret sql.NullString
	if up.Password != nil {
		hashed, err := s.verifier.Hash(*up.Password)
		if err != nil {
			return err
		}
		secret = sql.NullString{String: hashed, Valid: true}
	}
	var role sql.NullString
	if up.Role != nil {
		role = sql.NullString{String: string(*up.Role), Valid: true}
	}
	const q = `
		UPDATE users SET
			username = COALESCE($2, username),
			password = COALESCE($3, password),
			role     = COALESCE($4, role),
			email    = COALESCE($5, email),
			phone    = COALESCE($6, phone)
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, id, optional(up.Username), secret, role, optional(up.Email), optional(up.Phone))
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrUsernameTaken
		case pgerrcode.CheckViolation, pgerrcode.StringDataRightTruncationDataException:
			return errors.Join(ErrInvalidUser, errors.New(pqErr.Message))
		}
	}
	return fmt.Errorf("write user: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func optional(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Repository = (*PostgresStore)(nil)
