package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/safetycheck/safetycheck/internal/httpx"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

const twitterAdapterVersion = "1.0"

// twitterURLPattern matches twitter.com and x.com status URLs.
var twitterURLPattern = regexp.MustCompile(`^https?://(?:www\.)?(?:twitter|x)\.com/(\w+)/status/(\d+)`)

// TwitterConfig configures the Twitter/X adapter.
type TwitterConfig struct {
	// SyndicationURL is the public tweet endpoint; override it in tests.
	SyndicationURL string `yaml:"syndication_url"`
	// Timeout bounds each extraction request.
	Timeout time.Duration `yaml:"timeout"`
}

// SetDefaults applies documented defaults.
func (c *TwitterConfig) SetDefaults() {
	if c.SyndicationURL == "" {
		c.SyndicationURL = "https://cdn.syndication.twimg.com/tweet-result"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

// TwitterAdapter extracts tweets through the public syndication endpoint,
// which serves embed data without API credentials.
type TwitterAdapter struct {
	cfg    TwitterConfig
	client *http.Client
	logger logger.Logger
}

// NewTwitterAdapter creates a Twitter adapter.
func NewTwitterAdapter(cfg TwitterConfig, log logger.Logger) *TwitterAdapter {
	cfg.SetDefaults()
	return &TwitterAdapter{
		cfg:    cfg,
		client: httpx.NewClient(httpx.ClientConfig{Timeout: cfg.Timeout}),
		logger: log,
	}
}

func (a *TwitterAdapter) Platform() schema.Platform { return schema.PlatformTwitter }

func (a *TwitterAdapter) CanHandle(rawURL string) bool {
	return twitterURLPattern.MatchString(rawURL)
}

func (a *TwitterAdapter) ExtractID(rawURL string) (string, error) {
	m := twitterURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", &URLParseError{URL: rawURL, Reason: "not a twitter status url"}
	}
	return fmt.Sprintf("twitter_%s_%s", m[1], m[2]), nil
}

type syndicationTweet struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	User      struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		Verified   bool   `json:"verified"`
		IsBlueTick bool   `json:"is_blue_verified"`
	} `json:"user"`
	Photos []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"photos"`
	FavoriteCount     int64 `json:"favorite_count"`
	ConversationCount int64 `json:"conversation_count"`
}

func (a *TwitterAdapter) Extract(ctx context.Context, rawURL string) (*schema.CanonicalPost, error) {
	m := twitterURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, &URLParseError{URL: rawURL, Reason: "not a twitter status url"}
	}
	username, tweetID := m[1], m[2]

	endpoint := fmt.Sprintf("%s?id=%s&token=a", a.cfg.SyndicationURL, tweetID)
	body, err := fetchBytes(ctx, a.client, schema.PlatformTwitter, endpoint)
	if err != nil {
		return nil, err
	}

	var tweet syndicationTweet
	if err := json.Unmarshal(body, &tweet); err != nil {
		return nil, &ContentExtractionError{URL: rawURL, Reason: "unexpected response shape", Err: err}
	}
	if tweet.Text == "" && len(tweet.Photos) == 0 {
		return nil, &ContentExtractionError{URL: rawURL, Reason: "tweet unavailable or deleted"}
	}

	verified := tweet.User.Verified || tweet.User.IsBlueTick
	post := &schema.CanonicalPost{
		PostID:   fmt.Sprintf("twitter_%s_%s", username, tweetID),
		PostText: tweet.Text,
		Platform: schema.PlatformTwitter,
		AuthorMetadata: &schema.AuthorMetadata{
			AuthorType:       schema.AuthorTypeIndividual,
			AccountAgeBucket: schema.AccountAgeUnknown,
			IsVerified:       &verified,
		},
		EngagementMetrics: &schema.EngagementMetrics{
			Likes:   &tweet.FavoriteCount,
			Replies: &tweet.ConversationCount,
		},
		ExternalLinks:  extractLinks(tweet.Text, "twitter.com", "x.com", "t.co"),
		RawSourceURL:   rawURL,
		AdapterVersion: twitterAdapterVersion,
	}
	if ts, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
		utc := ts.UTC()
		post.Timestamp = &utc
	}
	for _, photo := range tweet.Photos {
		post.MediaItems = append(post.MediaItems, schema.MediaMetadata{
			MediaType: schema.MediaTypeImage,
			URL:       photo.URL,
			Width:     photo.Width,
			Height:    photo.Height,
		})
	}

	post.Normalize()
	return post, nil
}

func (a *TwitterAdapter) ExtractFromText(rawText string) (*schema.CanonicalPost, error) {
	return pastePost(schema.PlatformTwitter, rawText, twitterAdapterVersion), nil
}

// HealthCheck probes the syndication endpoint; any response below 500
// means the endpoint is reachable.
func (a *TwitterAdapter) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.SyndicationURL+"?id=1&token=a", nil)
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
