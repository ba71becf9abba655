package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
)

// Store is a storage.BlobStore kept in a single DuckDB table
type Store struct {
	db *sql.DB
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore creates a new DuckDB store
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize sets up the database schema
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS blobs (
			key VARCHAR PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Get retrieves the blob stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return data, nil
}

// Put inserts or replaces the blob under key in a single statement
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	query := `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, data, time.Now()); err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}

	return nil
}

// Exists reports whether key has a stored blob
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blobs WHERE key = ?", key).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check blob: %w", err)
	}

	return count > 0, nil
}

// List returns keys starting with prefix, ordered lexically
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM blobs WHERE starts_with(key, ?) ORDER BY key", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
