package schema

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Request size ceilings.
const (
	MaxRequestURLLen  = 2000
	MaxRequestTextLen = 50000 // ~50KB of pasted text
)

// AnalyzeRequest is the body of an analysis request. Exactly one of URL or
// Text must be set.
type AnalyzeRequest struct {
	URL          string `json:"url,omitempty"`
	Text         string `json:"text,omitempty"`
	PlatformHint string `json:"platform_hint,omitempty"`
}

// AnalyzeResponse is the envelope returned to callers.
type AnalyzeResponse struct {
	Success bool            `json:"success"`
	Data    *AnalysisResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Cached  bool            `json:"cached"`
}

// ErrMissingInput is returned when a request carries neither URL nor text.
var ErrMissingInput = errors.New("either url or text is required")

// ErrBothInputs is returned when a request carries both URL and text.
var ErrBothInputs = errors.New("provide url or text, not both")

// Validate checks the request against the input-error taxonomy: malformed
// or dangerous URLs, oversized or corrupt text, and unknown platform hints
// are all rejected synchronously, never retried.
func (r *AnalyzeRequest) Validate() error {
	if r.URL == "" && r.Text == "" {
		return ErrMissingInput
	}
	if r.URL != "" && r.Text != "" {
		return ErrBothInputs
	}
	if r.URL != "" {
		if err := validateRequestURL(r.URL); err != nil {
			return err
		}
	}
	if r.Text != "" {
		if err := validateRequestText(r.Text); err != nil {
			return err
		}
	}
	if r.PlatformHint != "" {
		hint := Platform(strings.ToLower(r.PlatformHint))
		if !hint.Valid() {
			return fmt.Errorf("unknown platform hint %q", r.PlatformHint)
		}
		r.PlatformHint = string(hint)
	}
	return nil
}

func validateRequestURL(raw string) error {
	if len(raw) > MaxRequestURLLen {
		return fmt.Errorf("url exceeds %d characters", MaxRequestURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must use http or https")
	}

	// SSRF protection: never fetch loopback or private addresses.
	host := u.Hostname()
	if host == "" {
		return errors.New("url has no host")
	}
	if strings.EqualFold(host, "localhost") {
		return errors.New("cannot analyze localhost urls")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return errors.New("cannot analyze private or local addresses")
		}
	}
	return nil
}

func validateRequestText(text string) error {
	if len(text) > MaxRequestTextLen {
		return fmt.Errorf("text exceeds %d characters", MaxRequestTextLen)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be blank")
	}
	if strings.ContainsRune(text, 0) {
		return errors.New("text contains invalid characters")
	}
	return nil
}
