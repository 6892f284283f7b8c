package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

const redditPostJSON = `[
  {"data": {"children": [{"data": {
    "title": "Miracle cure discovered",
    "selftext": "Doctors hate this trick. See https://scam.example/buy now",
    "author": "snake_oil",
    "created_utc": 1700000000,
    "score": 42,
    "num_comments": 7,
    "post_hint": "image",
    "url_overridden_by_dest": "https://i.redd.it/abc.png"
  }}]}},
  {"data": {"children": [
    {"data": {"body": "this is fake"}},
    {"data": {"body": "reported"}},
    {"data": {"body": ""}}
  ]}}
]`

func newRedditTestAdapter(t *testing.T, handler http.HandlerFunc) *RedditAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRedditAdapter(RedditConfig{BaseURL: srv.URL}, logger.NewNop())
}

func TestRedditAdapter_CanHandle(t *testing.T) {
	a := NewRedditAdapter(RedditConfig{}, logger.NewNop())

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.reddit.com/r/news/comments/abc123/title/", true},
		{"https://reddit.com/r/science/comments/xyz", true},
		{"https://old.reddit.com/r/science/comments/xyz", true},
		{"https://twitter.com/user/status/123", false},
		{"https://www.reddit.com/r/news/", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := a.CanHandle(tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRedditAdapter_ExtractID(t *testing.T) {
	a := NewRedditAdapter(RedditConfig{}, logger.NewNop())

	id, err := a.ExtractID("https://www.reddit.com/r/news/comments/abc123/some_title/")
	if err != nil {
		t.Fatalf("ExtractID() error = %v", err)
	}
	if id != "reddit_news_abc123" {
		t.Errorf("ExtractID() = %q", id)
	}

	if _, err := a.ExtractID("https://example.com/x"); !IsURLParse(err) {
		t.Errorf("ExtractID() error = %v, want URLParseError", err)
	}
}

func TestRedditAdapter_Extract(t *testing.T) {
	// The author account is three years old with 15k combined karma.
	aboutJSON := fmt.Sprintf(`{"data": {"created_utc": %d, "link_karma": 12000, "comment_karma": 3000}}`,
		time.Now().AddDate(-3, 0, 0).Unix())

	a := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/r/news/comments/abc123.json":
			_, _ = w.Write([]byte(redditPostJSON))
		case "/user/snake_oil/about.json":
			_, _ = w.Write([]byte(aboutJSON))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	post, err := a.Extract(context.Background(), "https://www.reddit.com/r/news/comments/abc123/title/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if post.PostID != "reddit_news_abc123" {
		t.Errorf("PostID = %q", post.PostID)
	}
	if post.PostText != "Miracle cure discovered\n\nDoctors hate this trick. See https://scam.example/buy now" {
		t.Errorf("PostText = %q", post.PostText)
	}
	if post.EngagementMetrics == nil || *post.EngagementMetrics.Likes != 42 || *post.EngagementMetrics.Replies != 7 {
		t.Errorf("EngagementMetrics = %+v", post.EngagementMetrics)
	}
	if len(post.MediaItems) == 0 || post.MediaItems[0].URL != "https://i.redd.it/abc.png" {
		t.Errorf("MediaItems = %+v", post.MediaItems)
	}
	if len(post.ExternalLinks) != 1 || post.ExternalLinks[0] != "https://scam.example/buy" {
		t.Errorf("ExternalLinks = %v", post.ExternalLinks)
	}
	if len(post.SampledComments) != 2 {
		t.Errorf("SampledComments = %v", post.SampledComments)
	}
	if post.Timestamp == nil || post.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v", post.Timestamp)
	}
	if post.AuthorMetadata == nil {
		t.Fatal("AuthorMetadata = nil")
	}
	if post.AuthorMetadata.AccountAgeBucket != schema.AccountAgeVeteran {
		t.Errorf("AccountAgeBucket = %q, want veteran", post.AuthorMetadata.AccountAgeBucket)
	}
	if post.AuthorMetadata.FollowerCountBucket != "10k-100k" {
		t.Errorf("FollowerCountBucket = %q", post.AuthorMetadata.FollowerCountBucket)
	}
	if err := post.Validate(); err != nil {
		t.Errorf("extracted post fails validation: %v", err)
	}
}

// A failed author lookup must degrade to unknown buckets, never fail the
// extraction.
func TestRedditAdapter_AuthorLookupDegrades(t *testing.T) {
	a := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r/news/comments/abc123.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(redditPostJSON))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	post, err := a.Extract(context.Background(), "https://www.reddit.com/r/news/comments/abc123/title/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if post.AuthorMetadata == nil {
		t.Fatal("AuthorMetadata = nil")
	}
	if post.AuthorMetadata.AccountAgeBucket != schema.AccountAgeUnknown {
		t.Errorf("AccountAgeBucket = %q, want unknown", post.AuthorMetadata.AccountAgeBucket)
	}
	if post.AuthorMetadata.FollowerCountBucket != "" {
		t.Errorf("FollowerCountBucket = %q, want empty", post.AuthorMetadata.FollowerCountBucket)
	}
}

func TestRedditAdapter_Extract_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"gone content", http.StatusNotFound, IsContentExtraction},
		{"private content", http.StatusForbidden, IsContentExtraction},
		{"rate limited", http.StatusTooManyRequests, IsRateLimit},
		{"upstream outage", http.StatusServiceUnavailable, IsRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := a.Extract(context.Background(), "https://www.reddit.com/r/news/comments/abc123/t/")
			if err == nil || !tt.check(err) {
				t.Errorf("Extract() error = %v, wrong kind for status %d", err, tt.status)
			}
		})
	}
}

func TestRedditAdapter_Extract_BadJSON(t *testing.T) {
	a := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})
	_, err := a.Extract(context.Background(), "https://www.reddit.com/r/news/comments/abc123/t/")
	if !IsContentExtraction(err) {
		t.Errorf("Extract() error = %v, want ContentExtractionError", err)
	}
}
