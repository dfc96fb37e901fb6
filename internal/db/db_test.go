package db

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	dir := t.TempDir()
	schema := "CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY);"
	require.NoError(t, os.WriteFile(filepath.Join(dir, schemaFile), []byte(schema), 0o600))

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, RunMigrations(context.Background(), conn, dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsMissingSchema(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	err = RunMigrations(context.Background(), conn, t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
