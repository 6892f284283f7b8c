// Package ratelimit implements request admission control: per-caller
// quota windows, per-origin abuse heuristics, and a global pacing
// limiter for classifier calls. The layers are independent; the
// pipeline composes them in a fixed order.
package ratelimit

import (
	"sync"
	"time"

	"github.com/safetycheck/safetycheck/internal/logger"
)

// Quota defaults.
const (
	DefaultRequestsPerHour = 100
	DefaultRequestsPerDay  = 1000
	DefaultTokensPerDay    = 500000
)

// QuotaConfig bounds a single caller identity.
type QuotaConfig struct {
	RequestsPerHour int   `default:"100"    env:"QUOTA_REQUESTS_PER_HOUR" yaml:"requests_per_hour"`
	RequestsPerDay  int   `default:"1000"   env:"QUOTA_REQUESTS_PER_DAY"  yaml:"requests_per_day"`
	TokensPerDay    int64 `default:"500000" env:"QUOTA_TOKENS_PER_DAY"    yaml:"tokens_per_day"`
}

// SetDefaults fills zero values with documented defaults.
func (c *QuotaConfig) SetDefaults() {
	if c.RequestsPerHour <= 0 {
		c.RequestsPerHour = DefaultRequestsPerHour
	}
	if c.RequestsPerDay <= 0 {
		c.RequestsPerDay = DefaultRequestsPerDay
	}
	if c.TokensPerDay <= 0 {
		c.TokensPerDay = DefaultTokensPerDay
	}
}

type quotaEvent struct {
	at     time.Time
	tokens int64
}

type quotaState struct {
	events []quotaEvent
}

// Quota tracks per-key request and token usage over rolling hourly and
// daily windows. Allow and Record are split deliberately: admission is
// checked before expensive work, but usage is recorded only after the
// work actually happened, so cache hits and failed requests stay free.
type Quota struct {
	cfg    QuotaConfig
	logger logger.Logger

	mu   sync.Mutex
	keys map[string]*quotaState
	now  func() time.Time
}

// NewQuota creates a quota tracker.
func NewQuota(cfg QuotaConfig, log logger.Logger) *Quota {
	cfg.SetDefaults()
	return &Quota{
		cfg:    cfg,
		logger: log,
		keys:   make(map[string]*quotaState),
		now:    time.Now,
	}
}

// Allow reports whether the key has headroom in every window. It does
// not consume quota.
func (q *Quota) Allow(key string) (bool, string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.prune(key)
	now := q.now()
	hourAgo := now.Add(-time.Hour)

	var hourly, daily int
	var dailyTokens int64
	for _, ev := range state.events {
		daily++
		dailyTokens += ev.tokens
		if ev.at.After(hourAgo) {
			hourly++
		}
	}

	switch {
	case hourly >= q.cfg.RequestsPerHour:
		q.logger.Warn("hourly quota exceeded", logger.String("key", key), logger.Int("requests", hourly))
		return false, "hourly request limit exceeded"
	case daily >= q.cfg.RequestsPerDay:
		q.logger.Warn("daily quota exceeded", logger.String("key", key), logger.Int("requests", daily))
		return false, "daily request limit exceeded"
	case dailyTokens >= q.cfg.TokensPerDay:
		q.logger.Warn("daily token quota exceeded", logger.String("key", key), logger.Int64("tokens", dailyTokens))
		return false, "daily token limit exceeded"
	}
	return true, ""
}

// Usage is a point-in-time snapshot of a key's remaining windows.
type Usage struct {
	HourRequestsRemaining int   `json:"hour_requests_remaining"`
	DayRequestsRemaining  int   `json:"day_requests_remaining"`
	DayTokensRemaining    int64 `json:"day_tokens_remaining"`
}

// Usage reports the key's remaining headroom without consuming any. The
// snapshot is advisory: a concurrent request may spend it first.
func (q *Quota) Usage(key string) Usage {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.prune(key)
	hourAgo := q.now().Add(-time.Hour)

	var hourly, daily int
	var dailyTokens int64
	for _, ev := range state.events {
		daily++
		dailyTokens += ev.tokens
		if ev.at.After(hourAgo) {
			hourly++
		}
	}

	return Usage{
		HourRequestsRemaining: max(q.cfg.RequestsPerHour-hourly, 0),
		DayRequestsRemaining:  max(q.cfg.RequestsPerDay-daily, 0),
		DayTokensRemaining:    max(q.cfg.TokensPerDay-dailyTokens, 0),
	}
}

// Record charges one request and its token usage to the key.
func (q *Quota) Record(key string, tokens int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.prune(key)
	state.events = append(state.events, quotaEvent{at: q.now(), tokens: tokens})
}

// prune drops events older than the daily window. Caller holds q.mu.
func (q *Quota) prune(key string) *quotaState {
	state, ok := q.keys[key]
	if !ok {
		state = &quotaState{}
		q.keys[key] = state
	}

	dayAgo := q.now().Add(-24 * time.Hour)
	kept := state.events[:0]
	for _, ev := range state.events {
		if ev.at.After(dayAgo) {
			kept = append(kept, ev)
		}
	}
	state.events = kept
	return state
}
