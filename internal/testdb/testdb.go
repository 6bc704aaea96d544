//go:build integration

// Package testdb opens a migrated PostgreSQL database for integration
// tests and isolates each test in a rolled-back transaction.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/keepstone/keepstone/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// Timeout bounds connection and migration work in tests.
const Timeout = 10 * time.Second

// DatabaseURL returns the integration database URL: KEEPSTONE_TEST_DB_URL
// first, then DATABASE_URL.
func DatabaseURL() string {
	if u := os.Getenv("KEEPSTONE_TEST_DB_URL"); u != "" {
		return u
	}
	return os.Getenv("DATABASE_URL")
}

// isCI reports whether tests run under a CI system, where a missing
// database is an error rather than a reason to skip.
func isCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

// Open connects to the integration database and applies all migrations.
// Without a configured URL the test is skipped locally and fails in CI.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		if isCI() {
			t.Fatal("integration database not configured: set KEEPSTONE_TEST_DB_URL or DATABASE_URL")
		}
		t.Skip("integration database not configured")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database %s", postgres.MaskURL(dbURL))
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database %s unreachable", postgres.MaskURL(dbURL))

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, db, postgres.MigrateUp, quiet), "failed to apply migrations")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
