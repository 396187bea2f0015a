// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package database provides the DuckDB-backed store for users, provider
// tokens, and fitness records.
//
// The store is the only shared mutable resource in the system. Every token
// update is a single atomic row update (last-write-wins) and every record
// write is an idempotent upsert keyed by the provider-assigned external id,
// so concurrent or repeated sync runs over the same window never duplicate
// rows.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/logging"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	spatialAvailable bool
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for the database file.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments; the spatial extension is loaded explicitly and is allowed
	// to be unavailable.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		if cerr := conn.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close database after init error")
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Bool("spatial", db.spatialAvailable).
		Msg("Database initialized")

	return db, nil
}

// configureConnectionPool tunes the database/sql pool. DuckDB is embedded and
// single-file, so a small pool is enough.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(4)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
}

// initialize loads optional extensions and creates the schema.
func (db *DB) initialize() error {
	db.loadSpatialExtension()

	if err := db.createTables(); err != nil {
		return err
	}

	// Flush the WAL so a clean restart never has to replay schema statements.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// loadSpatialExtension loads the DuckDB spatial extension if it is installed
// locally. Failure is non-fatal: the health endpoint reports spatial as a
// feature probe that is allowed to fail.
func (db *DB) loadSpatialExtension() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "LOAD spatial;"); err != nil {
		logging.Debug().Err(err).Msg("Spatial extension unavailable")
		db.spatialAvailable = false
		return
	}
	db.spatialAvailable = true
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// SpatialVersion returns the loaded spatial extension version. Returns an
// error when the extension is not available; callers treat this as a
// degraded-but-healthy condition.
func (db *DB) SpatialVersion(ctx context.Context) (string, error) {
	if !db.spatialAvailable {
		return "", fmt.Errorf("spatial extension not loaded")
	}

	var version sql.NullString
	err := db.conn.QueryRowContext(ctx,
		"SELECT extension_version FROM duckdb_extensions() WHERE extension_name = 'spatial' AND loaded").
		Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to query spatial version: %w", err)
	}
	if !version.Valid || version.String == "" {
		return "", fmt.Errorf("spatial extension reports no version")
	}
	return version.String, nil
}

// Checkpoint forces a WAL flush to the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}
