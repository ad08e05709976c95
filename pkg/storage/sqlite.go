package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/genetic-go/pkg/shard"
)

// SQLiteStore implements Store on a SQLite database. Each entry records the
// shard a distributed deployment would place the key on, computed from the
// injected router, so a later sharded loader can partition the archive
// without rehashing.
type SQLiteStore struct {
	db     *sql.DB
	router shard.Router
}

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithRouter sets the shard router used to tag stored keys. Defaults to a
// single local shard.
func WithRouter(r shard.Router) SQLiteOption {
	return func(s *SQLiteStore) { s.router = r }
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at path.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		router: shard.Static("local"),
	}

	for _, opt := range opts {
		opt(store)
	}

	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL keeps readers cheap while a run streams evictions in.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS individuals (
		key TEXT PRIMARY KEY,
		shard TEXT NOT NULL,
		value BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shard ON individuals(shard);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT OR REPLACE INTO individuals (key, shard, value, stored_at)
	VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, key, s.router.Route(key), value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store individual: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value FROM individuals WHERE key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load individual: %w", err)
	}

	return value, true, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM individuals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count individuals: %w", err)
	}
	return count, nil
}

// KeysByShard returns the stored keys tagged for one shard, the unit a
// distributed loader would fetch.
func (s *SQLiteStore) KeysByShard(ctx context.Context, shardName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM individuals WHERE shard = ? ORDER BY key`, shardName)
	if err != nil {
		return nil, fmt.Errorf("failed to query shard keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
