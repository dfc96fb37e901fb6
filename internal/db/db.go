package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
)

const schemaFile = "schema.sql"

// Open connects to PostgreSQL and verifies the connection before returning.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

// RunMigrations applies basePath/schema.sql. The schema is idempotent, so it
// runs on every start.
func RunMigrations(ctx context.Context, conn *sql.DB, basePath string) error {
	path := filepath.Join(basePath, schemaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", path, err)
	}
	if _, err := conn.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply schema %s: %w", path, err)
	}
	return nil
}
