package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps blobs in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

var _ KV = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn and creates the blobs table if needed.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Blob written to sqlite")
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
