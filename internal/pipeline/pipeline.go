// Package pipeline orchestrates one analysis request end to end: admission
// control, cache lookup, content ingestion, media enrichment, classification
// and the final cache write. Stages within a request run strictly in that
// order; independent requests share nothing but the registry, the counters
// and the cache backend.
package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/safetycheck/safetycheck/internal/adapter"
	"github.com/safetycheck/safetycheck/internal/cache"
	"github.com/safetycheck/safetycheck/internal/classifier"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/media"
	"github.com/safetycheck/safetycheck/internal/metrics"
	"github.com/safetycheck/safetycheck/internal/ratelimit"
	"github.com/safetycheck/safetycheck/internal/retry"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// NoAdapterError means no registered adapter claims the URL. This is an
// expected outcome for unsupported platforms, not an internal failure.
type NoAdapterError struct {
	URL string
}

func (e *NoAdapterError) Error() string {
	return fmt.Sprintf("no adapter for url %q", e.URL)
}

// ErrTooManyRequests is returned when an admission layer rejects the
// request. The caller sees one uniform outcome regardless of which layer
// tripped.
var ErrTooManyRequests = errors.New("too many requests")

// ErrQuotaExceeded is wrapped into ErrTooManyRequests with the specific
// window that was exhausted.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Outcome is the result of one analysis request.
type Outcome struct {
	Result *schema.AnalysisResult
	Cached bool
}

// Identity carries the caller identity used for admission control.
type Identity struct {
	// Key is the caller's quota identity (API key or equivalent).
	Key string
	// Origin is the network origin (client IP) for abuse heuristics.
	Origin string
}

// Pipeline wires the components together. It owns the media cache's HTTP
// client and must be closed on shutdown.
type Pipeline struct {
	registry   *adapter.Registry
	media      *media.Processor
	cache      *cache.ResultCache
	classifier classifier.Classifier
	quota      *ratelimit.Quota
	abuse      *ratelimit.AbuseDetector
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	retryCfg   retry.Config
	logger     logger.Logger
}

// New creates a pipeline.
func New(
	registry *adapter.Registry,
	mediaProc *media.Processor,
	resultCache *cache.ResultCache,
	clf classifier.Classifier,
	quota *ratelimit.Quota,
	abuse *ratelimit.AbuseDetector,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	log logger.Logger,
) *Pipeline {
	retryCfg := retry.DefaultConfig()
	retryCfg.IsRetryable = isTransient
	return &Pipeline{
		registry:   registry,
		media:      mediaProc,
		cache:      resultCache,
		classifier: clf,
		quota:      quota,
		abuse:      abuse,
		limiter:    limiter,
		metrics:    m,
		retryCfg:   retryCfg,
		logger:     log,
	}
}

// isTransient decides which errors earn another attempt: adapter
// rate-limit errors and transient classifier transport failures. Input
// and permanent extraction errors propagate immediately.
func isTransient(err error) bool {
	if adapter.IsRateLimit(err) {
		return true
	}
	var apiErr *classifier.APIError
	if errors.As(err, &apiErr) {
		return retry.DefaultIsRetryable(apiErr.Err)
	}
	return false
}

// AnalyzeURL runs the full pipeline for a URL input.
func (p *Pipeline) AnalyzeURL(ctx context.Context, id Identity, rawURL string) (*Outcome, error) {
	return p.analyze(ctx, id, rawURL, cache.FingerprintURL(rawURL), "url", func(ctx context.Context) (*schema.CanonicalPost, error) {
		return p.IngestFromURL(ctx, rawURL)
	})
}

// AnalyzeText runs the full pipeline for a pasted-text input.
func (p *Pipeline) AnalyzeText(ctx context.Context, id Identity, text string, hint schema.Platform) (*Outcome, error) {
	return p.analyze(ctx, id, text, cache.FingerprintText(text), "text", func(context.Context) (*schema.CanonicalPost, error) {
		return p.IngestFromText(text, hint)
	})
}

// AnalyzeUpload runs the pipeline for an uploaded image plus optional
// text. The image bytes are stored in the media cache, captioned and
// OCRed, and also handed to the classifier for multimodal analysis.
func (p *Pipeline) AnalyzeUpload(ctx context.Context, id Identity, image []byte, ext, text string) (*Outcome, error) {
	// The image bytes join the abuse fingerprint so distinct-image
	// probing is as visible to the heuristic as distinct-text probing.
	content := fmt.Sprintf("%x\n%s", sha256.Sum256(image), text)
	if p.abuse != nil && p.abuse.Check(id.Origin, content) {
		p.metrics.RecordBlocked("abuse")
		return nil, ErrTooManyRequests
	}

	features, hash, err := p.media.ExtractFromBytes(ctx, image, ext)
	if err != nil {
		return nil, fmt.Errorf("store uploaded image: %w", err)
	}

	key := cache.FingerprintUpload(hash, text)
	if outcome, ok := p.lookupCache(ctx, key); ok {
		return outcome, nil
	}

	if allowed, reason := p.quota.Allow(id.Key); !allowed {
		p.metrics.RecordBlocked("quota")
		return nil, fmt.Errorf("%w: %s: %s", ErrTooManyRequests, ErrQuotaExceeded, reason)
	}

	post := &schema.CanonicalPost{
		PostID:   "upload_" + hash[:12],
		PostText: text,
		Platform: schema.PlatformUnknown,
		MediaItems: []schema.MediaMetadata{
			{MediaType: schema.MediaTypeImage, Hash: hash},
		},
		MediaFeatures: features,
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}

	return p.classifyAndCache(ctx, id, post, image, key)
}

// analyze is the shared request path: abuse check, cache lookup, quota
// check, ingest, classify, cache write. Cache hits are answered before
// the quota check so repeated identical queries stay free.
func (p *Pipeline) analyze(ctx context.Context, id Identity, content, key, kind string, ingest func(context.Context) (*schema.CanonicalPost, error)) (*Outcome, error) {
	started := time.Now()

	if p.abuse != nil && p.abuse.Check(id.Origin, content) {
		p.metrics.RecordBlocked("abuse")
		p.metrics.RecordRequest(kind, "blocked", time.Since(started))
		return nil, ErrTooManyRequests
	}

	if outcome, ok := p.lookupCache(ctx, key); ok {
		p.metrics.RecordRequest(kind, "cache_hit", time.Since(started))
		return outcome, nil
	}

	if allowed, reason := p.quota.Allow(id.Key); !allowed {
		p.metrics.RecordBlocked("quota")
		p.metrics.RecordRequest(kind, "blocked", time.Since(started))
		return nil, fmt.Errorf("%w: %s: %s", ErrTooManyRequests, ErrQuotaExceeded, reason)
	}

	post, err := ingest(ctx)
	if err != nil {
		p.metrics.RecordRequest(kind, "ingest_failed", time.Since(started))
		return nil, err
	}

	outcome, err := p.classifyAndCache(ctx, id, post, nil, key)
	if err != nil {
		p.metrics.RecordRequest(kind, "classify_failed", time.Since(started))
		return nil, err
	}
	p.metrics.RecordRequest(kind, "ok", time.Since(started))
	return outcome, nil
}

func (p *Pipeline) lookupCache(ctx context.Context, key string) (*Outcome, bool) {
	result, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a miss; the request still works.
		p.logger.Warn("cache lookup failed", logger.Error(err))
	}
	p.metrics.RecordCache(ok)
	if !ok {
		return nil, false
	}
	return &Outcome{Result: result, Cached: true}, true
}

// classifyAndCache paces the classifier call, retries transient failures
// with the same input, records quota usage and writes the cache. Fallback
// results are served but never cached: a later attempt may do better.
func (p *Pipeline) classifyAndCache(ctx context.Context, id Identity, post *schema.CanonicalPost, image []byte, key string) (*Outcome, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	var result *classifier.Result
	err := retry.Do(ctx, p.retryCfg, func() error {
		var callErr error
		result, callErr = p.classifier.Analyze(ctx, post, image)
		return callErr
	})
	if err != nil {
		p.metrics.RecordClassifierCall("error", time.Since(started), 0)
		return nil, err
	}

	outcome := "ok"
	if result.Fallback {
		outcome = "fallback"
		p.metrics.FallbacksServed.Inc()
	}
	p.metrics.RecordClassifierCall(outcome, time.Since(started), result.TokensUsed)

	p.quota.Record(id.Key, result.TokensUsed)

	if !result.Fallback {
		if err := p.cache.Set(ctx, key, result.Analysis); err != nil {
			p.logger.Warn("cache write failed", logger.Error(err))
		}
	}

	return &Outcome{Result: result.Analysis}, nil
}

// IngestFromURL routes the URL to an adapter, extracts the post and runs
// media enrichment. Enrichment failure degrades to a post without media
// features; extraction failure is a real failure and propagates.
func (p *Pipeline) IngestFromURL(ctx context.Context, rawURL string) (*schema.CanonicalPost, error) {
	a := p.registry.RouteByURL(rawURL)
	if a == nil {
		return nil, &NoAdapterError{URL: rawURL}
	}

	var post *schema.CanonicalPost
	err := retry.Do(ctx, p.retryCfg, func() error {
		var exErr error
		post, exErr = a.Extract(ctx, rawURL)
		return exErr
	})
	if err != nil {
		p.metrics.RecordExtraction(string(a.Platform()), errorKind(err))
		return nil, err
	}
	p.metrics.RecordExtraction(string(a.Platform()), "")

	if err := p.media.EnrichPost(ctx, post); err != nil {
		p.logger.Warn("media enrichment skipped",
			logger.String("post_id", post.PostID),
			logger.Error(err))
	}
	return post, nil
}

// IngestFromText builds a paste-mode post. A hint naming a registered
// platform selects that adapter; otherwise the first registered adapter
// is used. Platform identity does not matter for pasted text, so an
// arbitrary-but-deterministic fallback is intended behavior.
func (p *Pipeline) IngestFromText(text string, hint schema.Platform) (*schema.CanonicalPost, error) {
	var a adapter.Adapter
	if hint != "" {
		a = p.registry.Get(hint)
	}
	if a == nil {
		a = p.registry.First()
	}
	if a == nil {
		return nil, errors.New("no adapters registered")
	}
	return a.ExtractFromText(text)
}

// HealthCheck aggregates adapter liveness.
func (p *Pipeline) HealthCheck(ctx context.Context) map[schema.Platform]bool {
	return p.registry.HealthCheckAll(ctx)
}

// QuotaUsage reports the caller's remaining quota windows.
func (p *Pipeline) QuotaUsage(id Identity) ratelimit.Usage {
	return p.quota.Usage(id.Key)
}

// ClearCache empties the result cache.
func (p *Pipeline) ClearCache(ctx context.Context) error {
	return p.cache.Clear(ctx)
}

// Close releases the media cache's HTTP client and the cache backend.
// Safe to call on every shutdown path.
func (p *Pipeline) Close() error {
	p.media.Close()
	return p.cache.Close()
}

func errorKind(err error) string {
	switch {
	case adapter.IsURLParse(err):
		return "url_parse"
	case adapter.IsContentExtraction(err):
		return "extraction"
	case adapter.IsRateLimit(err):
		return "rate_limit"
	default:
		return "other"
	}
}
