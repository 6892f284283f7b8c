// Package schema defines the canonical data model shared by every component
// of the service. Platform adapters produce a CanonicalPost, the enrichment
// step attaches media features, and the classifier consumes the result.
//
// Required fields are kept to the minimum (post ID, text, platform).
// Every other field is optional and must degrade gracefully: consumers
// treat a nil pointer or empty slice as "unknown", never as an error.
package schema

import (
	"errors"
	"fmt"
	"time"
)

// Platform identifies a content source.
type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformTwitter  Platform = "twitter"
	PlatformTelegram Platform = "telegram"
	PlatformUnknown  Platform = "unknown"
)

// Valid reports whether p is a known platform value.
func (p Platform) Valid() bool {
	switch p {
	case PlatformReddit, PlatformTwitter, PlatformTelegram, PlatformUnknown:
		return true
	}
	return false
}

// MediaType identifies the kind of a media attachment.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeGIF   MediaType = "gif"
	MediaTypeNone  MediaType = "none"
)

// AuthorType is a coarse, privacy-preserving author classification.
type AuthorType string

const (
	AuthorTypeIndividual   AuthorType = "individual"
	AuthorTypeOrganization AuthorType = "organization"
	AuthorTypeBot          AuthorType = "bot"
	AuthorTypeUnknown      AuthorType = "unknown"
)

// AccountAgeBucket buckets account age so raw creation dates never leave
// the adapter.
type AccountAgeBucket string

const (
	AccountAgeNew         AccountAgeBucket = "new"         // < 30 days
	AccountAgeRecent      AccountAgeBucket = "recent"      // 30 days - 6 months
	AccountAgeEstablished AccountAgeBucket = "established" // 6 months - 2 years
	AccountAgeVeteran     AccountAgeBucket = "veteran"     // > 2 years
	AccountAgeUnknown     AccountAgeBucket = "unknown"
)

// AccountAgeBucketForDays maps an account age in days to its bucket.
func AccountAgeBucketForDays(days float64) AccountAgeBucket {
	switch {
	case days < 0:
		return AccountAgeUnknown
	case days < 30:
		return AccountAgeNew
	case days < 180:
		return AccountAgeRecent
	case days < 730:
		return AccountAgeEstablished
	default:
		return AccountAgeVeteran
	}
}

// FollowerCountBucket maps a raw follower (or karma) count to a coarse
// string bucket. Raw counts are never stored on a post: buckets prevent
// re-identification and keep classifier prompts stable-length.
func FollowerCountBucket(count int64) string {
	switch {
	case count < 100:
		return "0-100"
	case count < 1000:
		return "100-1k"
	case count < 10000:
		return "1k-10k"
	case count < 100000:
		return "10k-100k"
	default:
		return "100k+"
	}
}

// AuthorMetadata carries bucketed, non-PII author signals.
type AuthorMetadata struct {
	AuthorType          AuthorType       `json:"author_type"`
	AccountAgeBucket    AccountAgeBucket `json:"account_age_bucket"`
	IsVerified          *bool            `json:"is_verified,omitempty"`
	FollowerCountBucket string           `json:"follower_count_bucket,omitempty"`
}

// EngagementMetrics holds public engagement counts where the platform
// exposes them. Nil fields mean the platform does not report the metric.
type EngagementMetrics struct {
	Likes   *int64 `json:"likes,omitempty"`
	Shares  *int64 `json:"shares,omitempty"`
	Replies *int64 `json:"replies,omitempty"`
	Views   *int64 `json:"views,omitempty"`
}

// MediaMetadata describes a single media attachment as extracted from the
// source. Hash and SizeBytes are filled in by the enrichment step once the
// bytes have been downloaded.
type MediaMetadata struct {
	MediaType    MediaType `json:"media_type"`
	URL          string    `json:"url"`
	Hash         string    `json:"hash,omitempty"` // SHA-256 of the content bytes
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// MediaFeatures holds features derived from the first image of a post.
// All fields are best-effort and independently absent.
type MediaFeatures struct {
	Caption         string   `json:"caption,omitempty"`
	OCRText         string   `json:"ocr_text,omitempty"`
	DetectedObjects []string `json:"detected_objects,omitempty"`
	NSFWScore       *float64 `json:"nsfw_score,omitempty"`
	FaceDetected    *bool    `json:"face_detected,omitempty"`
}

// Caps on list-valued context fields.
const (
	MaxExternalLinks   = 10
	MaxSampledComments = 5
	MaxOCRTextLen      = 2000
)

// CanonicalPost is the normalized post every adapter must produce. It is
// constructed once by an adapter (or the upload handler), optionally
// mutated exactly once by enrichment to attach MediaFeatures, and then
// treated as immutable.
type CanonicalPost struct {
	PostID   string   `json:"post_id"`
	PostText string   `json:"post_text"`
	Platform Platform `json:"platform"`

	Timestamp *time.Time `json:"timestamp,omitempty"`
	Language  string     `json:"language,omitempty"`

	AuthorMetadata    *AuthorMetadata    `json:"author_metadata,omitempty"`
	EngagementMetrics *EngagementMetrics `json:"engagement_metrics,omitempty"`

	MediaItems    []MediaMetadata `json:"media_items,omitempty"`
	MediaFeatures *MediaFeatures  `json:"media_features,omitempty"`

	ExternalLinks   []string `json:"external_links,omitempty"`
	Hashtags        []string `json:"hashtags,omitempty"`
	Mentions        []string `json:"mentions,omitempty"`
	SampledComments []string `json:"sampled_comments,omitempty"`

	RawSourceURL   string `json:"raw_source_url,omitempty"`
	AdapterVersion string `json:"adapter_version,omitempty"`
}

// ErrMissingPostID is returned when a post has no ID.
var ErrMissingPostID = errors.New("post_id is required")

// Validate checks the required fields. An empty PostText is allowed only
// when the post carries at least one media item (image-only post).
func (p *CanonicalPost) Validate() error {
	if p.PostID == "" {
		return ErrMissingPostID
	}
	if !p.Platform.Valid() {
		return fmt.Errorf("invalid platform %q", p.Platform)
	}
	if p.PostText == "" && len(p.MediaItems) == 0 {
		return errors.New("post_text may be empty only for media-only posts")
	}
	return nil
}

// Normalize enforces the caps on list-valued fields in place. Adapters call
// it before returning a post so downstream components can rely on bounded
// prompt sizes.
func (p *CanonicalPost) Normalize() {
	if len(p.ExternalLinks) > MaxExternalLinks {
		p.ExternalLinks = p.ExternalLinks[:MaxExternalLinks]
	}
	if len(p.SampledComments) > MaxSampledComments {
		p.SampledComments = p.SampledComments[:MaxSampledComments]
	}
}

// FirstImage returns the first image media item, or nil if the post has
// none. Only the first image is enriched.
func (p *CanonicalPost) FirstImage() *MediaMetadata {
	for i := range p.MediaItems {
		if p.MediaItems[i].MediaType == MediaTypeImage {
			return &p.MediaItems[i]
		}
	}
	return nil
}
