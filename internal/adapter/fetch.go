package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/safetycheck/safetycheck/internal/schema"
)

// maxResponseBytes bounds how much of an upstream response we will read.
const maxResponseBytes = 4 << 20 // 4 MiB

var linkPattern = regexp.MustCompile(`https?://[^\s<>()"']+`)

// fetchBytes performs a GET against a platform endpoint and translates
// every failure into one of the adapter error kinds.
func fetchBytes(ctx context.Context, client *http.Client, platform schema.Platform, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &URLParseError{URL: url, Reason: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		// Timeouts, resets and refused connections are all transient
		// from the caller's perspective: back off and retry.
		return nil, &RateLimitError{Platform: platform, Err: err}
	}
	defer resp.Body.Close()

	if err := statusError(platform, url, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RateLimitError{Platform: platform, Err: err}
	}
	return body, nil
}

// statusError maps an upstream HTTP status to an adapter error kind, or
// nil for success.
func statusError(platform schema.Platform, url string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Platform: platform, Err: fmt.Errorf("upstream returned %d", status)}
	case status >= 500:
		return &RateLimitError{Platform: platform, Err: fmt.Errorf("upstream returned %d", status)}
	case status == http.StatusNotFound || status == http.StatusGone:
		return &ContentExtractionError{URL: url, Reason: "content not found"}
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return &ContentExtractionError{URL: url, Reason: "content is private or access is forbidden"}
	default:
		return &ContentExtractionError{URL: url, Reason: fmt.Sprintf("upstream returned %d", status)}
	}
}

// extractLinks pulls http(s) URLs out of free text, skipping links into the
// given platform's own domains.
func extractLinks(text string, skipHosts ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, link := range linkPattern.FindAllString(text, -1) {
		link = strings.TrimRight(link, ".,;")
		skip := false
		for _, host := range skipHosts {
			if strings.Contains(link, host) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

// isImageURL reports whether a URL path looks like a direct image link.
func isImageURL(url string) bool {
	path := url
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return true
		}
	}
	return false
}
