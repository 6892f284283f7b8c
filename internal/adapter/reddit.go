package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/safetycheck/safetycheck/internal/httpx"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

const redditAdapterVersion = "1.0"

// redditURLPattern matches reddit.com, www.reddit.com and old.reddit.com
// post URLs.
var redditURLPattern = regexp.MustCompile(`^https?://(?:www\.|old\.)?reddit\.com/r/(\w+)/comments/(\w+)`)

// RedditConfig configures the Reddit adapter.
type RedditConfig struct {
	// BaseURL is the Reddit endpoint; override it in tests.
	BaseURL string `yaml:"base_url"`
	// UserAgent identifies this service to Reddit. Reddit throttles
	// default Go user agents aggressively.
	UserAgent string `env:"REDDIT_USER_AGENT" yaml:"user_agent"`
	// Timeout bounds each extraction request.
	Timeout time.Duration `yaml:"timeout"`
}

// SetDefaults applies documented defaults.
func (c *RedditConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.reddit.com"
	}
	if c.UserAgent == "" {
		c.UserAgent = "safetycheck/1.0"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

// RedditAdapter extracts posts via Reddit's public JSON endpoints; no API
// credentials are required for public content.
type RedditAdapter struct {
	cfg    RedditConfig
	client *http.Client
	logger logger.Logger
}

// NewRedditAdapter creates a Reddit adapter.
func NewRedditAdapter(cfg RedditConfig, log logger.Logger) *RedditAdapter {
	cfg.SetDefaults()
	return &RedditAdapter{
		cfg:    cfg,
		client: httpx.NewClient(httpx.ClientConfig{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent}),
		logger: log,
	}
}

func (a *RedditAdapter) Platform() schema.Platform { return schema.PlatformReddit }

func (a *RedditAdapter) CanHandle(rawURL string) bool {
	return redditURLPattern.MatchString(rawURL)
}

func (a *RedditAdapter) ExtractID(rawURL string) (string, error) {
	m := redditURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", &URLParseError{URL: rawURL, Reason: "not a reddit post url"}
	}
	return fmt.Sprintf("reddit_%s_%s", m[1], m[2]), nil
}

// redditListing mirrors the slice of the public JSON response we consume.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditThing `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	PostHint    string  `json:"post_hint"`
	URL         string  `json:"url_overridden_by_dest"`
	Body        string  `json:"body"`
	Preview     struct {
		Images []struct {
			Source struct {
				URL    string `json:"url"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

func (a *RedditAdapter) Extract(ctx context.Context, rawURL string) (*schema.CanonicalPost, error) {
	m := redditURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, &URLParseError{URL: rawURL, Reason: "not a reddit post url"}
	}
	subreddit, id := m[1], m[2]

	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&raw_json=1",
		a.cfg.BaseURL, subreddit, id, schema.MaxSampledComments)
	body, err := fetchBytes(ctx, a.client, schema.PlatformReddit, endpoint)
	if err != nil {
		return nil, err
	}

	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, &ContentExtractionError{URL: rawURL, Reason: "unexpected response shape", Err: err}
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, &ContentExtractionError{URL: rawURL, Reason: "post not present in response"}
	}
	thing := listings[0].Data.Children[0].Data

	post := &schema.CanonicalPost{
		PostID:            fmt.Sprintf("reddit_%s_%s", subreddit, id),
		PostText:          buildRedditText(thing),
		Platform:          schema.PlatformReddit,
		Language:          "en", // Reddit is predominantly English
		EngagementMetrics: redditEngagement(thing),
		MediaItems:        redditMedia(thing),
		ExternalLinks:     redditLinks(thing),
		SampledComments:   redditComments(listings),
		RawSourceURL:      rawURL,
		AdapterVersion:    redditAdapterVersion,
	}
	if thing.CreatedUTC > 0 {
		ts := time.Unix(int64(thing.CreatedUTC), 0).UTC()
		post.Timestamp = &ts
	}
	if thing.Author != "" && thing.Author != "[deleted]" {
		post.AuthorMetadata = a.authorMetadata(ctx, thing.Author)
	}

	post.Normalize()
	return post, nil
}

// redditAbout mirrors the slice of /user/<name>/about.json we consume.
type redditAbout struct {
	Data struct {
		CreatedUTC   float64 `json:"created_utc"`
		LinkKarma    int64   `json:"link_karma"`
		CommentKarma int64   `json:"comment_karma"`
	} `json:"data"`
}

// authorMetadata fetches the author's public profile and buckets the raw
// values; creation dates and karma counts never leave this method. Lookup
// failure degrades to the unknown buckets and never fails the extraction.
func (a *RedditAdapter) authorMetadata(ctx context.Context, author string) *schema.AuthorMetadata {
	meta := &schema.AuthorMetadata{
		AuthorType:       schema.AuthorTypeIndividual,
		AccountAgeBucket: schema.AccountAgeUnknown,
	}

	endpoint := fmt.Sprintf("%s/user/%s/about.json", a.cfg.BaseURL, url.PathEscape(author))
	body, err := fetchBytes(ctx, a.client, schema.PlatformReddit, endpoint)
	if err != nil {
		a.logger.Debug("author lookup failed",
			logger.String("author", author),
			logger.Error(err))
		return meta
	}

	var about redditAbout
	if err := json.Unmarshal(body, &about); err != nil {
		return meta
	}
	if about.Data.CreatedUTC > 0 {
		days := time.Since(time.Unix(int64(about.Data.CreatedUTC), 0)).Hours() / 24
		meta.AccountAgeBucket = schema.AccountAgeBucketForDays(days)
	}
	meta.FollowerCountBucket = schema.FollowerCountBucket(about.Data.LinkKarma + about.Data.CommentKarma)
	return meta
}

func (a *RedditAdapter) ExtractFromText(rawText string) (*schema.CanonicalPost, error) {
	return pastePost(schema.PlatformReddit, rawText, redditAdapterVersion), nil
}

// HealthCheck probes a cheap public listing.
func (a *RedditAdapter) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/r/all/hot.json?limit=1", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func buildRedditText(t redditThing) string {
	if t.Selftext != "" {
		return t.Title + "\n\n" + t.Selftext
	}
	return t.Title
}

func redditEngagement(t redditThing) *schema.EngagementMetrics {
	likes := t.Score
	if likes < 0 {
		likes = 0
	}
	replies := t.NumComments
	return &schema.EngagementMetrics{Likes: &likes, Replies: &replies}
}

func redditMedia(t redditThing) []schema.MediaMetadata {
	var items []schema.MediaMetadata
	if t.PostHint == "image" || isImageURL(t.URL) {
		items = append(items, schema.MediaMetadata{
			MediaType: schema.MediaTypeImage,
			URL:       t.URL,
		})
	}
	for _, img := range t.Preview.Images {
		if img.Source.URL == "" {
			continue
		}
		items = append(items, schema.MediaMetadata{
			MediaType: schema.MediaTypeImage,
			URL:       img.Source.URL,
			Width:     img.Source.Width,
			Height:    img.Source.Height,
		})
	}
	return items
}

func redditLinks(t redditThing) []string {
	links := extractLinks(t.Selftext, "reddit.com", "redd.it")
	if t.URL != "" && !isImageURL(t.URL) {
		links = append(extractLinks(t.URL, "reddit.com", "redd.it"), links...)
	}
	return links
}

func redditComments(listings []redditListing) []string {
	if len(listings) < 2 {
		return nil
	}
	var comments []string
	for _, child := range listings[1].Data.Children {
		if child.Data.Body == "" {
			continue
		}
		comments = append(comments, child.Data.Body)
		if len(comments) == schema.MaxSampledComments {
			break
		}
	}
	return comments
}
