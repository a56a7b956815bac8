package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const DefaultDBName = "cache.db"

type DB struct {
	*sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the cache rewrites the whole table per mutation.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return sqlDB, nil
}

// Exists reports whether a database file is present at path.
func Exists(dbPath string) (bool, error) {
	_, err := os.Stat(dbPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat database: %w", err)
}

// Open opens an existing database and verifies its schema. It never creates a file;
// use Create for first-run initialization.
func Open(dbPath string) (*DB, error) {
	exists, err := Exists(dbPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("database %s: %w", dbPath, os.ErrNotExist)
	}

	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, path: dbPath}

	if err := db.checkSchema(); err != nil {
		_ = db.Close() // Close error less important than schema error
		return nil, err
	}
	return db, nil
}

// Create creates the database file and its schema.
func Create(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, path: dbPath}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// checkSchema fails when the cache table is missing, which means the file is not ours
// or was damaged.
func (db *DB) checkSchema() error {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='cache_entries'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("database %s has no cache_entries table", db.path)
	}
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// InitSchema initializes the database schema
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}
