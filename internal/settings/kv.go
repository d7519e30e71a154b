package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"blackbox-backend/internal/db"
)

var ErrNotFound = errors.New("key not found")

// KV is a string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

func (k *MemoryKV) Get(_ context.Context, key string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, ok := k.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (k *MemoryKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *MemoryKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQLKV keeps entries in the kv_store table.
type SQLKV struct {
	db *db.DB
}

func NewSQLKV(ctx context.Context, d *db.DB) (*SQLKV, error) {
	if _, err := d.ExecContext(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("create kv_store: %w", err)
	}
	return &SQLKV{db: d}, nil
}

func (k *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := k.db.QueryRowContext(ctx, k.db.Rebind(`SELECT value FROM kv_store WHERE name = $1`), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (k *SQLKV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, k.db.Rebind(`
		INSERT INTO kv_store (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`), key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (k *SQLKV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, k.db.Rebind(`DELETE FROM kv_store WHERE name = $1`), key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
