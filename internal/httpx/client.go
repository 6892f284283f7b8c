// Package httpx builds the tuned HTTP clients shared by the adapters and
// the media cache.
package httpx

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for outbound requests.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// ClientConfig configures an outbound HTTP client.
type ClientConfig struct {
	// Timeout limits each request end to end. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxIdleConnsPerHost caps keep-alive connections per host.
	MaxIdleConnsPerHost int
	// UserAgent, when set, is attached to every request via the transport.
	UserAgent string
}

// NewClient creates an HTTP client with the standard transport tuning.
func NewClient(cfg ClientConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	perHost := cfg.MaxIdleConnsPerHost
	if perHost == 0 {
		perHost = defaultMaxIdleConnsPerHost
	}

	var rt http.RoundTripper = &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
	}
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{agent: cfg.UserAgent, next: rt}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
