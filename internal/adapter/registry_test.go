package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// fakeAdapter claims every URL containing its substring.
type fakeAdapter struct {
	platform schema.Platform
	match    string
	healthy  bool
}

func (f *fakeAdapter) Platform() schema.Platform { return f.platform }
func (f *fakeAdapter) CanHandle(rawURL string) bool {
	return strings.Contains(rawURL, f.match)
}
func (f *fakeAdapter) ExtractID(rawURL string) (string, error) {
	return string(f.platform) + "_id", nil
}
func (f *fakeAdapter) Extract(context.Context, string) (*schema.CanonicalPost, error) {
	return nil, &ContentExtractionError{Reason: "fake"}
}
func (f *fakeAdapter) ExtractFromText(rawText string) (*schema.CanonicalPost, error) {
	return pastePost(f.platform, rawText, "test"), nil
}
func (f *fakeAdapter) HealthCheck(context.Context) bool { return f.healthy }

func TestRegistry_RouteByURL_FirstRegisteredWins(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	a := &fakeAdapter{platform: schema.PlatformReddit, match: "example.com"}
	b := &fakeAdapter{platform: schema.PlatformTwitter, match: "example.com"}
	r.Register(a)
	r.Register(b)

	// Both adapters claim the URL; the first registered must win, every
	// time.
	for i := 0; i < 10; i++ {
		got := r.RouteByURL("https://example.com/post/1")
		if got != Adapter(a) {
			t.Fatalf("RouteByURL returned %v, want first registered adapter", got.Platform())
		}
	}
}

func TestRegistry_RouteByURL_NoMatch(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register(&fakeAdapter{platform: schema.PlatformReddit, match: "reddit.com"})

	if got := r.RouteByURL("https://unknown.example/post"); got != nil {
		t.Errorf("RouteByURL = %v, want nil for unsupported platform", got.Platform())
	}
}

func TestRegistry_RegisterReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	first := &fakeAdapter{platform: schema.PlatformReddit, match: "a"}
	second := &fakeAdapter{platform: schema.PlatformTwitter, match: "a"}
	r.Register(first)
	r.Register(second)

	// Re-registering reddit must not move it behind twitter.
	replacement := &fakeAdapter{platform: schema.PlatformReddit, match: "a"}
	r.Register(replacement)

	if got := r.RouteByURL("https://a.example/x"); got != Adapter(replacement) {
		t.Error("replaced adapter lost its routing position")
	}
	platforms := r.Platforms()
	if len(platforms) != 2 || platforms[0] != schema.PlatformReddit {
		t.Errorf("Platforms() = %v", platforms)
	}
}

func TestRegistry_First(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	if r.First() != nil {
		t.Error("First() on an empty registry should be nil")
	}

	paste := NewPasteAdapter()
	r.Register(paste)
	r.Register(&fakeAdapter{platform: schema.PlatformReddit, match: "reddit"})

	if got := r.First(); got != Adapter(paste) {
		t.Errorf("First() = %v, want the paste adapter", got.Platform())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	a := &fakeAdapter{platform: schema.PlatformTelegram, match: "t.me"}
	r.Register(a)

	if got := r.Get(schema.PlatformTelegram); got != Adapter(a) {
		t.Error("Get() did not return the registered adapter")
	}
	if got := r.Get(schema.PlatformTwitter); got != nil {
		t.Error("Get() for an unregistered platform should be nil")
	}
}

type panickyAdapter struct{ fakeAdapter }

func (p *panickyAdapter) HealthCheck(context.Context) bool { panic("boom") }

func TestRegistry_HealthCheckAll_SurvivesPanic(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register(&fakeAdapter{platform: schema.PlatformReddit, healthy: true})
	r.Register(&panickyAdapter{fakeAdapter{platform: schema.PlatformTwitter}})

	results := r.HealthCheckAll(context.Background())
	if !results[schema.PlatformReddit] {
		t.Error("healthy adapter reported unhealthy")
	}
	if results[schema.PlatformTwitter] {
		t.Error("panicking adapter should report unhealthy")
	}
}
