package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/safetycheck/safetycheck/internal/logger"
)

// Abuse detection defaults.
const (
	DefaultRequestsPerMinute  = 60
	DefaultDistinctContentMax = 50
	DefaultDistinctWindow     = time.Hour
)

// AbuseConfig bounds a single network origin.
type AbuseConfig struct {
	RequestsPerMinute  int           `default:"60" env:"ABUSE_REQUESTS_PER_MINUTE"  yaml:"requests_per_minute"`
	DistinctContentMax int           `default:"50" env:"ABUSE_DISTINCT_CONTENT_MAX" yaml:"distinct_content_max"`
	DistinctWindow     time.Duration `default:"1h" env:"ABUSE_DISTINCT_WINDOW"      yaml:"distinct_window"`
}

// SetDefaults fills zero values with documented defaults.
func (c *AbuseConfig) SetDefaults() {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.DistinctContentMax <= 0 {
		c.DistinctContentMax = DefaultDistinctContentMax
	}
	if c.DistinctWindow <= 0 {
		c.DistinctWindow = DefaultDistinctWindow
	}
}

type originState struct {
	requests  []time.Time
	content   map[string]time.Time
	lastSweep time.Time
}

// AbuseDetector applies two per-origin heuristics: a requests-per-minute
// ceiling, and a distinct-content counter over a longer window that
// catches cache-bypass probing (one origin submitting many different
// inputs in quick succession). Repeat submissions of the same content
// never count against the distinct limit; they are expected cache hits.
//
// The distinct counter is a heuristic. A very heavy legitimate user can
// trip it; that is an accepted tradeoff.
type AbuseDetector struct {
	cfg    AbuseConfig
	logger logger.Logger

	mu      sync.Mutex
	origins map[string]*originState
	now     func() time.Time
}

// NewAbuseDetector creates an abuse detector.
func NewAbuseDetector(cfg AbuseConfig, log logger.Logger) *AbuseDetector {
	cfg.SetDefaults()
	return &AbuseDetector{
		cfg:     cfg,
		logger:  log,
		origins: make(map[string]*originState),
		now:     time.Now,
	}
}

// Check records a request from origin and reports whether it should be
// blocked. content is the raw submitted input; pass "" when no content
// is available (the distinct-content heuristic is then skipped).
func (d *AbuseDetector) Check(origin, content string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	state, ok := d.origins[origin]
	if !ok {
		state = &originState{content: make(map[string]time.Time), lastSweep: now}
		d.origins[origin] = state
	}

	minuteAgo := now.Add(-time.Minute)
	kept := state.requests[:0]
	for _, ts := range state.requests {
		if ts.After(minuteAgo) {
			kept = append(kept, ts)
		}
	}
	state.requests = kept

	if len(state.requests) >= d.cfg.RequestsPerMinute {
		d.logger.Warn("request rate ceiling hit", logger.String("origin", origin))
		return true
	}
	state.requests = append(state.requests, now)

	if content == "" {
		return false
	}

	sum := sha256.Sum256([]byte(content))
	fp := hex.EncodeToString(sum[:16])

	if _, seen := state.content[fp]; seen {
		state.content[fp] = now
		return false
	}

	d.sweep(state, now)
	state.content[fp] = now
	if len(state.content) > d.cfg.DistinctContentMax {
		d.logger.Warn("cache bypass pattern detected",
			logger.String("origin", origin),
			logger.Int("distinct_inputs", len(state.content)))
		return true
	}
	return false
}

// sweep expires old content fingerprints. Runs at most once per window
// per origin to keep Check cheap. Caller holds d.mu.
func (d *AbuseDetector) sweep(state *originState, now time.Time) {
	if now.Sub(state.lastSweep) < d.cfg.DistinctWindow {
		return
	}
	cutoff := now.Add(-d.cfg.DistinctWindow)
	for fp, ts := range state.content {
		if ts.Before(cutoff) {
			delete(state.content, fp)
		}
	}
	state.lastSweep = now
}
