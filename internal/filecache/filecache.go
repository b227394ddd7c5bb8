// Package filecache is a content-addressed cache for downloaded
// attachments. Files are keyed by the SHA-256 of their source URL, so
// re-downloading the same attachment is a no-op and a torn write can
// never be observed: data lands in a temp file and is renamed into
// place atomically.
package filecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Cache struct {
	root string
}

func New(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{root: root}, nil
}

// Key derives the cache key for an attachment source URL.
func Key(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// path fans files out into two-character prefix directories so one flat
// directory never grows unbounded. The original filename is kept as a
// suffix so saved files stay recognizable.
func (c *Cache) path(key, filename string) string {
	name := key
	if filename != "" {
		name = key[:16] + "-" + filepath.Base(filename)
	}
	if len(key) < 2 {
		return filepath.Join(c.root, name)
	}
	return filepath.Join(c.root, key[:2], name)
}

// Save stores the attachment body under key and returns the final path.
// If the key is already cached the existing path is returned and r is
// left unread.
func (c *Cache) Save(r io.Reader, key, filename string) (string, error) {
	path := c.path(key, filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("failed to write attachment data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to rename attachment file: %w", err)
	}
	return path, nil
}

// Open returns the cached attachment body, or an error satisfying
// os.IsNotExist when the key was never saved.
func (c *Cache) Open(key, filename string) (io.ReadCloser, error) {
	f, err := os.Open(c.path(key, filename))
	if err != nil {
		return nil, err
	}
	return f, nil
}
