// Package classifier is the boundary to the external risk model. It
// flattens a canonical post into prompt context, calls the model, and
// parses the structured verdict. Unparseable model output degrades to a
// fixed fallback result; a raw parse failure never reaches the caller.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/safetycheck/safetycheck/internal/schema"
)

// Classifier produces a risk verdict for a canonical post. image may be
// nil; when present it carries raw image bytes for multimodal analysis.
type Classifier interface {
	Analyze(ctx context.Context, post *schema.CanonicalPost, image []byte) (*Result, error)
}

// Result pairs the verdict with usage accounting for quota tracking.
type Result struct {
	Analysis   *schema.AnalysisResult
	TokensUsed int64
	// Fallback marks a result produced by FallbackResult rather than the
	// model. Fallback results are served to the caller but never cached:
	// a later attempt may succeed.
	Fallback bool
}

// APIError wraps a transport-level classifier failure. Whether it is
// retried depends on the underlying error (rate limits and timeouts
// are, auth failures are not).
type APIError struct {
	Err error
}

func (e *APIError) Error() string { return fmt.Sprintf("classifier api: %v", e.Err) }
func (e *APIError) Unwrap() error { return e.Err }

// ErrMalformedOutput is returned when the model's output could not be
// parsed into a valid verdict after the bounded in-call retries.
var ErrMalformedOutput = errors.New("classifier output malformed")

const fallbackSummary = "Automated analysis was unable to produce a confident verdict for this content. Manual review recommended."

// FallbackResult is the safe degraded verdict used when the model's
// output stays malformed after retries. Moderate by construction: the
// content is neither cleared nor condemned.
func FallbackResult(modelVersion string) *Result {
	return &Result{
		Analysis: mustResult(0.5, schema.RiskModerate, fallbackSummary, []string{
			"Automated analysis unavailable",
			"Content could not be assessed",
		}, modelVersion),
		Fallback: true,
	}
}

func mustResult(score float64, level schema.RiskLevel, summary string, signals []string, modelVersion string) *schema.AnalysisResult {
	r, err := schema.NewAnalysisResult(score, level, summary, signals, nil, modelVersion)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in result: %v", err))
	}
	return r
}
