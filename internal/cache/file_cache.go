package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileCache keeps every entry in memory and persists them as one JSON
// object of key to string value. Entries never expire.
//
// Writes are buffered until Flush or Close. Saving takes an advisory lock on
// "<path>.lock" and merges with whatever another process saved in the
// meantime, local entries winning.
type FileCache struct {
	path  string
	lock  *flock.Flock
	data  map[string]string
	dirty bool
	mu    sync.RWMutex
}

// NewFileCache opens the cache file at path. A missing file starts an empty
// cache; an unreadable or corrupt file is logged and also starts empty.
func NewFileCache(path string) (*FileCache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache file path is required")
	}

	c := &FileCache{
		path: path,
		lock: flock.New(path + ".lock"),
		data: make(map[string]string),
	}

	data, err := readCacheFile(path)
	if err != nil {
		slog.Warn("Ignoring unreadable cache file", "path", path, "error", err)
		return c, nil
	}
	c.data = data

	slog.Debug("File cache loaded", "path", path, "entries", len(c.data))
	return c, nil
}

// Get retrieves a value from the cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

// Set stores a value. The expiration is ignored.
func (c *FileCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = string(value)
	c.dirty = true
	return nil
}

// Delete removes a key from the cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[key]; ok {
		delete(c.data, key)
		c.dirty = true
	}
	return nil
}

// Exists checks if a key exists in the cache
func (c *FileCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.data[key]
	return ok, nil
}

// Len returns the number of entries held in memory
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Flush writes pending entries to disk
func (c *FileCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return &CacheError{Operation: "flush", Key: c.path, Err: err}
	}

	locked, err := c.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return &CacheError{Operation: "flush", Key: c.path, Err: err}
	}
	if !locked {
		return &CacheError{Operation: "flush", Key: c.path, Err: errors.New("cache file is locked")}
	}
	defer func() {
		_ = c.lock.Unlock()
	}()

	// entries another process saved since we loaded are kept
	if onDisk, err := readCacheFile(c.path); err == nil {
		for k, v := range onDisk {
			if _, ok := c.data[k]; !ok {
				c.data[k] = v
			}
		}
	}

	if err := writeCacheFile(c.path, c.data); err != nil {
		return &CacheError{Operation: "flush", Key: c.path, Err: err}
	}

	c.dirty = false
	slog.Debug("File cache saved", "path", c.path, "entries", len(c.data))
	return nil
}

// Close flushes pending entries
func (c *FileCache) Close() error {
	return c.Flush(context.Background())
}

// Health checks that the cache directory is usable
func (c *FileCache) Health(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(c.path))
	if err != nil {
		return fmt.Errorf("cache directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache directory %s is not a directory", filepath.Dir(c.path))
	}
	return nil
}

func readCacheFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	data := make(map[string]string)
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid cache file: %w", err)
	}
	return data, nil
}

func writeCacheFile(path string, data map[string]string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
