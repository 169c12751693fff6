// Package kv provides the small key-value surface the learner records are
// persisted through: get by key, set by key. Several backends share it.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// ErrInvalidKey is returned when a key contains characters a backend cannot store safely.
var ErrInvalidKey = errors.New("kv: invalid key")

// Store is a byte-valued key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Sweeper is implemented by backends that can drop entries nobody touched for maxAge.
type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the directory for the file backend and the database file for sqlite.
	Path string
	// RedisAddr is host:port for the redis backend.
	RedisAddr string
	// TTL bounds how long an untouched entry lives. Zero means forever.
	TTL time.Duration
}

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.Path, cfg.TTL)
	case DriverSQLite:
		return NewSQLite(cfg.Path)
	case DriverRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.TTL)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.Driver)
	}
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_:.-]{0,199}$`)

// ValidateKey rejects empty keys, path separators, traversal sequences and control bytes.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
