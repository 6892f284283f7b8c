// Package adapter contains the platform adapters that turn source content
// into canonical posts, and the registry that routes URLs to them.
//
// Every adapter translates platform-specific failures into exactly three
// error kinds: URLParseError for malformed input, ContentExtractionError
// for content that is gone, private or unreachable, and RateLimitError for
// transient, back-off-able conditions (upstream 429/5xx, timeouts). Raw
// transport errors never leak past an adapter.
package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/safetycheck/safetycheck/internal/schema"
)

// Adapter is implemented once per source platform.
type Adapter interface {
	// Platform returns the platform this adapter owns.
	Platform() schema.Platform

	// CanHandle reports whether the URL belongs to this adapter. It is a
	// pure pattern check and performs no I/O.
	CanHandle(rawURL string) bool

	// ExtractID derives the canonical post ID from the URL structure.
	// Returns a URLParseError if the URL does not match the adapter's
	// own pattern.
	ExtractID(rawURL string) (string, error)

	// Extract fetches the post from the platform and normalizes it.
	Extract(ctx context.Context, rawURL string) (*schema.CanonicalPost, error)

	// ExtractFromText builds a minimal post from pasted text. It never
	// performs network I/O and is available on every adapter.
	ExtractFromText(rawText string) (*schema.CanonicalPost, error)

	// HealthCheck is a best-effort, non-failing liveness probe.
	HealthCheck(ctx context.Context) bool
}

const healthCheckTimeout = 5 * time.Second

// pastePost builds the minimal canonical post shared by every adapter's
// paste mode. The ID is a deterministic hash of the text so identical
// pastes dedupe and hit the result cache.
func pastePost(platform schema.Platform, rawText, version string) *schema.CanonicalPost {
	sum := sha256.Sum256([]byte(rawText))
	now := time.Now().UTC()
	return &schema.CanonicalPost{
		PostID:         string(platform) + "_paste_" + hex.EncodeToString(sum[:])[:12],
		PostText:       rawText,
		Platform:       platform,
		Timestamp:      &now,
		AdapterVersion: version,
	}
}
