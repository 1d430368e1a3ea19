// Package sqlitemedium keeps key-value pairs in a single sqlite table,
// for installations that prefer one database file over per-key files.
// Values remain plain JSON text.
package sqlitemedium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driver = "sqlite"
	dsnOpt = "?_pragma=busy_timeout(3000)&_pragma=journal_mode(WAL)"
)

// Medium is a sqlite-backed key-value medium.
type Medium struct {
	db *sql.DB
	mu sync.Mutex
}

func New(path string) (*Medium, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitemedium: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlitemedium: create dir: %w", err)
	}
	db, err := sql.Open(driver, path+dsnOpt)
	if err != nil {
		return nil, fmt.Errorf("sqlitemedium: open db: %w", err)
	}
	m := &Medium{db: db}
	if err := m.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Medium) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *Medium) GetItem(key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, fmt.Errorf("sqlitemedium: key is empty")
	}
	const q = `SELECT value FROM kv_store WHERE key = ?`
	var value string
	err := m.db.QueryRowContext(context.Background(), q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlitemedium: get %q: %w", key, err)
	}
	return value, true, nil
}

func (m *Medium) SetItem(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sqlitemedium: key is empty")
	}
	const q = `
INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at`
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.db.ExecContext(context.Background(), q, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("sqlitemedium: set %q: %w", key, err)
	}
	return nil
}

func (m *Medium) RemoveItem(key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	const q = `DELETE FROM kv_store WHERE key = ?`
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.db.ExecContext(context.Background(), q, key); err != nil {
		return fmt.Errorf("sqlitemedium: remove %q: %w", key, err)
	}
	return nil
}

func (m *Medium) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlitemedium: migrate: %w", err)
	}
	return nil
}
