package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

func allAdapters(t *testing.T) []Adapter {
	t.Helper()
	log := logger.NewNop()
	return []Adapter{
		NewPasteAdapter(),
		NewRedditAdapter(RedditConfig{}, log),
		NewTwitterAdapter(TwitterConfig{}, log),
		NewTelegramAdapter(TelegramConfig{}, log),
	}
}

// Paste-mode IDs must be deterministic: same text, same ID, on every
// adapter. Different texts must not collide.
func TestExtractFromText_IdempotentIDs(t *testing.T) {
	for _, a := range allAdapters(t) {
		first, err := a.ExtractFromText("some pasted content")
		if err != nil {
			t.Fatalf("%s: ExtractFromText() error = %v", a.Platform(), err)
		}
		second, err := a.ExtractFromText("some pasted content")
		if err != nil {
			t.Fatalf("%s: ExtractFromText() error = %v", a.Platform(), err)
		}
		if first.PostID != second.PostID {
			t.Errorf("%s: IDs differ for identical text: %q vs %q", a.Platform(), first.PostID, second.PostID)
		}

		other, err := a.ExtractFromText("different content")
		if err != nil {
			t.Fatalf("%s: ExtractFromText() error = %v", a.Platform(), err)
		}
		if other.PostID == first.PostID {
			t.Errorf("%s: different texts collided on ID %q", a.Platform(), first.PostID)
		}
	}
}

func TestExtractFromText_IDShape(t *testing.T) {
	for _, a := range allAdapters(t) {
		post, err := a.ExtractFromText("hello world")
		if err != nil {
			t.Fatalf("%s: ExtractFromText() error = %v", a.Platform(), err)
		}

		prefix := string(a.Platform()) + "_paste_"
		if !strings.HasPrefix(post.PostID, prefix) {
			t.Errorf("%s: PostID = %q, want prefix %q", a.Platform(), post.PostID, prefix)
		}
		hash := strings.TrimPrefix(post.PostID, prefix)
		if len(hash) != 12 {
			t.Errorf("%s: hash suffix %q has length %d, want 12", a.Platform(), hash, len(hash))
		}
		if post.PostText != "hello world" {
			t.Errorf("%s: PostText = %q, want the verbatim input", a.Platform(), post.PostText)
		}
		if post.Platform != a.Platform() {
			t.Errorf("%s: Platform = %q", a.Platform(), post.Platform)
		}
		if err := post.Validate(); err != nil {
			t.Errorf("%s: paste post fails validation: %v", a.Platform(), err)
		}
	}
}

func TestPasteAdapter_NoURLSupport(t *testing.T) {
	a := NewPasteAdapter()

	if a.CanHandle("https://example.com/x") {
		t.Error("paste adapter must not claim URLs")
	}
	if _, err := a.ExtractID("https://example.com/x"); !IsURLParse(err) {
		t.Errorf("ExtractID error = %v, want URLParseError", err)
	}
	if _, err := a.Extract(context.Background(), "https://example.com/x"); !IsContentExtraction(err) {
		t.Errorf("Extract error = %v, want ContentExtractionError", err)
	}
	if !a.HealthCheck(context.Background()) {
		t.Error("paste adapter has no dependencies and must report healthy")
	}
	if a.Platform() != schema.PlatformUnknown {
		t.Errorf("Platform() = %q, want unknown", a.Platform())
	}
}

func TestErrorKinds(t *testing.T) {
	parse := &URLParseError{URL: "x", Reason: "bad"}
	extraction := &ContentExtractionError{URL: "x", Reason: "gone"}
	rateLimit := &RateLimitError{Platform: schema.PlatformReddit}

	if !IsURLParse(parse) || IsURLParse(extraction) || IsURLParse(rateLimit) {
		t.Error("IsURLParse misclassified")
	}
	if !IsContentExtraction(extraction) || IsContentExtraction(parse) {
		t.Error("IsContentExtraction misclassified")
	}
	if !IsRateLimit(rateLimit) || IsRateLimit(extraction) {
		t.Error("IsRateLimit misclassified")
	}
}
