package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File stores each key as a JSON document in a directory. Documents older than
// the TTL, and documents that no longer parse, are removed on read.
type File struct {
	dir string
	ttl time.Duration
}

// NewFile creates dir if needed and returns a store rooted there.
func NewFile(dir string, ttl time.Duration) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kv: file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("kv: create store directory: %w", err)
	}
	return &File{dir: dir, ttl: ttl}, nil
}

// securePath maps a key to a file inside the store directory. ':' is the only
// key character that needs mapping and '~' never appears in a valid key.
func (f *File) securePath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	name := strings.ReplaceAll(key, ":", "~") + ".json"
	path := filepath.Join(f.dir, name)

	absDir, err := filepath.Abs(f.dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if filepath.Dir(absPath) != filepath.Clean(absDir) {
		return "", fmt.Errorf("%w: %q escapes store directory", ErrInvalidKey, key)
	}
	return path, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.securePath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if f.ttl > 0 && time.Since(info.ModTime()) > f.ttl {
		_ = os.Remove(path)
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		_ = os.Remove(path)
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	path, err := f.securePath(key)
	if err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("kv: file store only holds JSON documents (key %q)", key)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Sweep removes documents whose modification time is older than maxAge.
func (f *File) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func (f *File) Close() error { return nil }
