// Package cache implements the analysis result cache: a deterministic
// fingerprint of the request input mapped to a previously computed
// AnalysisResult, with TTL expiry and a pluggable backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/safetycheck/safetycheck/internal/schema"
)

const keyPrefix = "analysis:"

// FingerprintURL derives the cache key for a URL input. Keys are
// namespaced by input kind, so a URL and an identical-text paste can
// never collide.
func FingerprintURL(url string) string {
	return fingerprint("url:" + url)
}

// FingerprintText derives the cache key for a pasted-text input.
func FingerprintText(text string) string {
	return fingerprint("text:" + text)
}

// FingerprintUpload derives the cache key for an uploaded image, keyed by
// its content hash plus any accompanying text.
func FingerprintUpload(contentHash, text string) string {
	return fingerprint("upload:" + contentHash + "\n" + text)
}

func fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Backend is the storage seam of the result cache. An in-process backend
// serves a single instance; a Redis backend lets several instances share
// results without touching callers.
//
// Backends store serialized copies: a value read back never aliases the
// value that was written. Concurrent Get/Set on one key must not corrupt
// state; last writer wins.
type Backend interface {
	// Get returns the cached result, or ok=false on a miss. An expired
	// entry is a miss and is evicted lazily by the read.
	Get(ctx context.Context, key string) (result *schema.AnalysisResult, ok bool, err error)
	// Set stores the result unconditionally with the given TTL.
	Set(ctx context.Context, key string, result *schema.AnalysisResult, ttl time.Duration) error
	// Delete removes a single entry.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// DefaultTTL is the default result lifetime.
const DefaultTTL = time.Hour

// ResultCache is the high-level cache used by the pipeline.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
}

// New creates a ResultCache over the given backend. A non-positive ttl
// falls back to DefaultTTL.
func New(backend Backend, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{backend: backend, ttl: ttl}
}

// Get looks up a fingerprint.
func (c *ResultCache) Get(ctx context.Context, key string) (*schema.AnalysisResult, bool, error) {
	return c.backend.Get(ctx, key)
}

// Set stores a result under a fingerprint with the default TTL.
func (c *ResultCache) Set(ctx context.Context, key string, result *schema.AnalysisResult) error {
	return c.backend.Set(ctx, key, result, c.ttl)
}

// SetWithTTL stores a result with an explicit TTL.
func (c *ResultCache) SetWithTTL(ctx context.Context, key string, result *schema.AnalysisResult, ttl time.Duration) error {
	return c.backend.Set(ctx, key, result, ttl)
}

// Clear empties the cache.
func (c *ResultCache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}

// Close releases the backend.
func (c *ResultCache) Close() error {
	return c.backend.Close()
}
