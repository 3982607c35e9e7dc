package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/jackc/pgx/v5/stdlib"     // "pgx"
	_ "github.com/tursodatabase/go-libsql" // "libsql"
	_ "modernc.org/sqlite"                 // "sqlite"
)

// Supported audit database kinds.
const (
	KindLibSQL   = "libsql"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Open connects to the audit database of the given kind. File-backed kinds
// create the parent directory when needed.
func Open(ctx context.Context, kind, dsn string, logger zerolog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}

	switch kind {
	case KindLibSQL:
		return openLibSQL(ctx, dsn, logger)
	case KindSQLite:
		return openSQLite(ctx, dsn, logger)
	case KindPostgres:
		return openPostgres(ctx, dsn, logger)
	}
	return nil, fmt.Errorf("unsupported database kind %q", kind)
}

func ensureDir(path string) error {
	if path == ":memory:" || strings.Contains(path, "://") {
		return nil
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create database directory %s: %w", dir, err)
	}
	return nil
}

func openLibSQL(ctx context.Context, path string, logger zerolog.Logger) (*sql.DB, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	dsn := path
	if !strings.Contains(dsn, ":") {
		dsn = "file:" + path
	}
	logger.Info().Str("dsn", dsn).Msg("Connecting to embedded libsql")

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}
	if err := verify(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(ctx context.Context, path string, logger zerolog.Logger) (*sql.DB, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	logger.Info().Str("path", path).Msg("Connecting to sqlite")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}

	// Single writer; WAL keeps readers concurrent.
	db.SetMaxOpenConns(1)

	// modernc.org/sqlite takes pragmas as statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec %q: %w", p, err)
		}
	}

	if err := verify(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, dsn string, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Msg("Connecting to postgres")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := verify(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func verify(ctx context.Context, db *sql.DB) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("basic connectivity test failed: unexpected result %d", result)
	}
	return nil
}
