package adapter

import (
	"context"

	"github.com/safetycheck/safetycheck/internal/schema"
)

const pasteAdapterVersion = "1.0"

// PasteAdapter is the paste-only adapter for content with no known source
// platform. It claims no URLs; its only job is turning pasted text into a
// canonical post under the "unknown" platform.
type PasteAdapter struct{}

// NewPasteAdapter creates the paste-only adapter.
func NewPasteAdapter() *PasteAdapter { return &PasteAdapter{} }

func (a *PasteAdapter) Platform() schema.Platform { return schema.PlatformUnknown }

// CanHandle always returns false: there is no URL shape for pasted text.
func (a *PasteAdapter) CanHandle(string) bool { return false }

func (a *PasteAdapter) ExtractID(rawURL string) (string, error) {
	return "", &URLParseError{URL: rawURL, Reason: "paste-only adapter has no URL format"}
}

func (a *PasteAdapter) Extract(_ context.Context, rawURL string) (*schema.CanonicalPost, error) {
	return nil, &ContentExtractionError{URL: rawURL, Reason: "paste-only adapter cannot fetch URLs"}
}

func (a *PasteAdapter) ExtractFromText(rawText string) (*schema.CanonicalPost, error) {
	return pastePost(schema.PlatformUnknown, rawText, pasteAdapterVersion), nil
}

// HealthCheck always succeeds: the adapter has no external dependency.
func (a *PasteAdapter) HealthCheck(context.Context) bool { return true }
