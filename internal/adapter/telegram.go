package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/safetycheck/safetycheck/internal/httpx"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

const telegramAdapterVersion = "1.0"

// telegramURLPattern matches t.me message links, with or without the /s/
// web-view prefix.
var telegramURLPattern = regexp.MustCompile(`^https?://t\.me/(?:s/)?(\w+)/(\d+)`)

// backgroundImagePattern pulls the photo URL out of the widget's inline
// style attribute.
var backgroundImagePattern = regexp.MustCompile(`background-image:url\('([^']+)'\)`)

// TelegramConfig configures the Telegram adapter.
type TelegramConfig struct {
	// BaseURL is the t.me endpoint; override it in tests.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each extraction request.
	Timeout time.Duration `yaml:"timeout"`
}

// SetDefaults applies documented defaults.
func (c *TelegramConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://t.me"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

// TelegramAdapter extracts public channel messages from the t.me embed
// preview. Only public channels are supported; private channels surface as
// extraction errors.
type TelegramAdapter struct {
	cfg    TelegramConfig
	client *http.Client
	logger logger.Logger
}

// NewTelegramAdapter creates a Telegram adapter.
func NewTelegramAdapter(cfg TelegramConfig, log logger.Logger) *TelegramAdapter {
	cfg.SetDefaults()
	return &TelegramAdapter{
		cfg:    cfg,
		client: httpx.NewClient(httpx.ClientConfig{Timeout: cfg.Timeout}),
		logger: log,
	}
}

func (a *TelegramAdapter) Platform() schema.Platform { return schema.PlatformTelegram }

func (a *TelegramAdapter) CanHandle(rawURL string) bool {
	return telegramURLPattern.MatchString(rawURL)
}

func (a *TelegramAdapter) ExtractID(rawURL string) (string, error) {
	m := telegramURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", &URLParseError{URL: rawURL, Reason: "not a t.me message url"}
	}
	return fmt.Sprintf("telegram_%s_%s", m[1], m[2]), nil
}

func (a *TelegramAdapter) Extract(ctx context.Context, rawURL string) (*schema.CanonicalPost, error) {
	m := telegramURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, &URLParseError{URL: rawURL, Reason: "not a t.me message url"}
	}
	channel, messageID := m[1], m[2]

	endpoint := fmt.Sprintf("%s/%s/%s?embed=1", a.cfg.BaseURL, channel, messageID)
	body, err := fetchBytes(ctx, a.client, schema.PlatformTelegram, endpoint)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ContentExtractionError{URL: rawURL, Reason: "unparseable embed page", Err: err}
	}

	text := strings.TrimSpace(doc.Find(".tgme_widget_message_text").First().Text())
	photoWrap := doc.Find(".tgme_widget_message_photo_wrap").First()
	if text == "" && photoWrap.Length() == 0 {
		if strings.Contains(strings.ToLower(string(body)), "private") {
			return nil, &ContentExtractionError{URL: rawURL, Reason: "channel is private; only public content is supported"}
		}
		return nil, &ContentExtractionError{URL: rawURL, Reason: "message not found or empty"}
	}

	post := &schema.CanonicalPost{
		PostID:         fmt.Sprintf("telegram_%s_%s", channel, messageID),
		PostText:       text,
		Platform:       schema.PlatformTelegram,
		AuthorMetadata: telegramAuthor(doc),
		ExternalLinks:  extractLinks(text, "t.me"),
		RawSourceURL:   rawURL,
		AdapterVersion: telegramAdapterVersion,
	}

	if style, ok := photoWrap.Attr("style"); ok {
		if sm := backgroundImagePattern.FindStringSubmatch(style); sm != nil {
			post.MediaItems = append(post.MediaItems, schema.MediaMetadata{
				MediaType: schema.MediaTypeImage,
				URL:       sm[1],
			})
		}
	}
	if post.PostText == "" && len(post.MediaItems) > 0 {
		post.PostText = "[Image post without text]"
	}
	if dt, ok := doc.Find(".tgme_widget_message_date time").First().Attr("datetime"); ok {
		if ts, err := time.Parse(time.RFC3339, dt); err == nil {
			utc := ts.UTC()
			post.Timestamp = &utc
		}
	}
	if views := strings.TrimSpace(doc.Find(".tgme_widget_message_views").First().Text()); views != "" {
		if v := parseApproxCount(views); v >= 0 {
			post.EngagementMetrics = &schema.EngagementMetrics{Views: &v}
		}
	}

	post.Normalize()
	return post, nil
}

func telegramAuthor(doc *goquery.Document) *schema.AuthorMetadata {
	if doc.Find(".tgme_widget_message_owner_name").Length() == 0 {
		return nil
	}
	// Embed previews only exist for broadcast channels.
	return &schema.AuthorMetadata{
		AuthorType:       schema.AuthorTypeOrganization,
		AccountAgeBucket: schema.AccountAgeUnknown,
	}
}

// parseApproxCount parses Telegram's abbreviated view counts ("3.4K",
// "1.2M", "987"). Returns -1 when unparseable.
func parseApproxCount(s string) int64 {
	s = strings.TrimSpace(s)
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1_000, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1_000_000, strings.TrimSuffix(s, "M")
	}
	var whole, frac int64
	var fracDigits int
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if _, err := fmt.Sscanf(s, "%d.%d", &whole, &frac); err != nil {
			return -1
		}
		fracDigits = len(s) - i - 1
	} else {
		if _, err := fmt.Sscanf(s, "%d", &whole); err != nil {
			return -1
		}
	}
	value := whole * mult
	if fracDigits > 0 {
		scale := int64(1)
		for i := 0; i < fracDigits; i++ {
			scale *= 10
		}
		value += frac * mult / scale
	}
	return value
}

func (a *TelegramAdapter) ExtractFromText(rawText string) (*schema.CanonicalPost, error) {
	return pastePost(schema.PlatformTelegram, rawText, telegramAdapterVersion), nil
}

// HealthCheck probes the t.me front page.
func (a *TelegramAdapter) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL, nil)
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
