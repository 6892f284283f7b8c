package media

import (
	"context"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// Processor ties the content-addressed cache to feature extraction. Only
// the first image of a post is processed; that is a deliberate scope
// limitation, not an oversight.
type Processor struct {
	cache    *Cache
	features *FeatureExtractor
	logger   logger.Logger
}

// NewProcessor creates a media processor.
func NewProcessor(cache *Cache, features *FeatureExtractor, log logger.Logger) *Processor {
	return &Processor{cache: cache, features: features, logger: log}
}

// EnrichPost downloads the post's first image, fills in its content hash
// and size, and attaches derived features. This is the single mutation of
// a post after construction. The returned error reports why enrichment
// was skipped; callers log it and continue, they never fail the request.
func (p *Processor) EnrichPost(ctx context.Context, post *schema.CanonicalPost) error {
	item := post.FirstImage()
	if item == nil {
		return nil
	}

	path, hash, size, err := p.cache.Download(ctx, item.URL)
	if err != nil {
		return err
	}
	item.Hash = hash
	item.SizeBytes = size

	post.MediaFeatures = p.features.Extract(ctx, path)
	return nil
}

// ExtractFromBytes stores uploaded image bytes in the cache and derives
// features from them. Used by the upload ingestion path.
func (p *Processor) ExtractFromBytes(ctx context.Context, data []byte, ext string) (*schema.MediaFeatures, string, error) {
	path, hash, err := p.cache.Store(data, ext)
	if err != nil {
		return nil, "", err
	}
	return p.features.Extract(ctx, path), hash, nil
}

// Close releases the underlying HTTP client.
func (p *Processor) Close() {
	p.cache.Close()
}
