// Package media implements the content-addressed media cache and the
// best-effort image feature extraction used to enrich posts.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/safetycheck/safetycheck/internal/httpx"
	"github.com/safetycheck/safetycheck/internal/logger"
)

// DownloadError wraps a failed media fetch.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %q: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// TooLargeError is returned when a payload exceeds the size ceiling.
// Oversized media is rejected outright, never truncated.
type TooLargeError struct {
	URL      string
	MaxBytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("media at %q exceeds %d bytes", e.URL, e.MaxBytes)
}

// CacheConfig configures the media cache.
type CacheConfig struct {
	// Dir is the cache root directory.
	Dir string `env:"MEDIA_CACHE_DIR" yaml:"dir"`
	// MaxSizeMB is the largest file the cache will accept.
	MaxSizeMB int64 `yaml:"max_size_mb"`
	// DownloadTimeout bounds each fetch.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// SetDefaults applies documented defaults.
func (c *CacheConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "./media_cache"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 30 * time.Second
	}
}

// Cache is a content-addressed media store. Files live at
// <dir>/<first two hex chars of sha256>/<sha256><ext>, so byte-identical
// content downloaded from different URLs collapses to one entry.
type Cache struct {
	dir      string
	maxBytes int64
	client   *http.Client
	logger   logger.Logger
}

// NewCache creates the cache directory and its HTTP client. The pipeline
// owns the client's lifetime and must call Close on shutdown.
func NewCache(cfg CacheConfig, log logger.Logger) (*Cache, error) {
	cfg.SetDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media cache dir: %w", err)
	}
	return &Cache{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxSizeMB * 1024 * 1024,
		client: httpx.NewClient(httpx.ClientConfig{
			Timeout:   cfg.DownloadTimeout,
			UserAgent: "safetycheck/1.0 mediabot",
		}),
		logger: log,
	}, nil
}

// Download fetches a media URL, verifies the size ceiling, and stores the
// bytes content-addressed. If the hash-derived path already exists the
// download result is discarded and the cached file is reused.
func (c *Cache) Download(ctx context.Context, url string) (path string, hash string, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", 0, &DownloadError{URL: url, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", 0, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", 0, &DownloadError{URL: url, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	// Read one byte past the limit to distinguish "at the ceiling" from
	// "over it".
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", "", 0, &DownloadError{URL: url, Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return "", "", 0, &TooLargeError{URL: url, MaxBytes: c.maxBytes}
	}

	path, hash, err = c.Store(data, extFromURL(url))
	if err != nil {
		return "", "", 0, err
	}
	return path, hash, int64(len(data)), nil
}

// Store writes bytes into the cache under their own hash and returns the
// path. Storing already-present content is a no-op.
func (c *Cache) Store(data []byte, ext string) (path string, hash string, err error) {
	sum := sha256.Sum256(data)
	hash = hex.EncodeToString(sum[:])
	path = c.Path(hash, ext)

	if _, statErr := os.Stat(path); statErr == nil {
		return path, hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("create shard dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write cached media: %w", err)
	}
	return path, hash, nil
}

// Path returns the sharded cache path for a content hash.
func (c *Cache) Path(hash, ext string) string {
	return filepath.Join(c.dir, hash[:2], hash+ext)
}

// Close releases the cache's HTTP connections.
func (c *Cache) Close() {
	c.client.CloseIdleConnections()
}

// extFromURL derives a file extension from a URL path, defaulting to a
// generic binary extension.
func extFromURL(url string) string {
	path := url
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" || len(ext) > 5 {
		return ".bin"
	}
	return ext
}
