package schema

import (
	"errors"
	"fmt"
	"time"
)

// RiskLevel is the categorical bucket of a risk score.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "Minimal"  // [0.0, 0.25)
	RiskLow      RiskLevel = "Low"      // [0.25, 0.5)
	RiskModerate RiskLevel = "Moderate" // [0.5, 0.7)
	RiskHigh     RiskLevel = "High"     // [0.7, 0.9)
	RiskCritical RiskLevel = "Critical" // [0.9, 1.0]
)

// RiskLevelForScore maps a score in [0,1] to its bucket.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score < 0.25:
		return RiskMinimal
	case score < 0.5:
		return RiskLow
	case score < 0.7:
		return RiskModerate
	case score < 0.9:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ClaimVerdict is the assessment of a fact-checked claim.
type ClaimVerdict string

const (
	VerdictTrue         ClaimVerdict = "True"
	VerdictFalse        ClaimVerdict = "False"
	VerdictMisleading   ClaimVerdict = "Misleading"
	VerdictUnverifiable ClaimVerdict = "Unverifiable"
	VerdictLacksContext ClaimVerdict = "Lacks Context"
)

// Valid reports whether v is a known verdict.
func (v ClaimVerdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictMisleading, VerdictUnverifiable, VerdictLacksContext:
		return true
	}
	return false
}

// Citation points at a credible source backing a fact-check verdict.
type Citation struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
	Excerpt    string `json:"excerpt,omitempty"`
}

// Limits on fact-check content.
const (
	MinCitations  = 1
	MaxCitations  = 3
	MaxSummaryLen = 500
	MinKeySignals = 2
	MaxKeySignals = 5
)

// FactCheck is a single checked claim. A fact-check with zero citations is
// invalid: an unsourced verdict is worse than no verdict.
type FactCheck struct {
	Claim       string       `json:"claim"`
	Verdict     ClaimVerdict `json:"verdict"`
	Explanation string       `json:"explanation"`
	Citations   []Citation   `json:"citations"`
}

// Validate checks a fact-check for structural validity.
func (f *FactCheck) Validate() error {
	if f.Claim == "" {
		return errors.New("fact check claim is required")
	}
	if !f.Verdict.Valid() {
		return fmt.Errorf("invalid verdict %q", f.Verdict)
	}
	if len(f.Citations) < MinCitations {
		return errors.New("fact check requires at least one citation")
	}
	if len(f.Citations) > MaxCitations {
		return fmt.Errorf("fact check has %d citations, maximum is %d", len(f.Citations), MaxCitations)
	}
	return nil
}

// AnalysisResult is the structured risk verdict returned by the classifier
// boundary. The risk level must always correspond to the score range; that
// cross-field invariant is enforced at construction, not left to callers.
type AnalysisResult struct {
	RiskScore  float64   `json:"risk_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Summary    string    `json:"summary"`
	KeySignals []string  `json:"key_signals"`

	FactChecks []FactCheck `json:"fact_checks"`

	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
	ModelVersion      string    `json:"model_version"`
}

// NewAnalysisResult constructs a validated AnalysisResult. It fails when
// the score is out of range, the level does not match the score, the
// summary or key-signal bounds are violated, or any fact-check is invalid.
func NewAnalysisResult(score float64, level RiskLevel, summary string, keySignals []string, factChecks []FactCheck, modelVersion string) (*AnalysisResult, error) {
	r := &AnalysisResult{
		RiskScore:         score,
		RiskLevel:         level,
		Summary:           summary,
		KeySignals:        keySignals,
		FactChecks:        factChecks,
		AnalysisTimestamp: time.Now().UTC(),
		ModelVersion:      modelVersion,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks all invariants on a result, including one that was
// deserialized from a cache or an external classifier response.
func (r *AnalysisResult) Validate() error {
	if r.RiskScore < 0 || r.RiskScore > 1 {
		return fmt.Errorf("risk score %v out of range [0,1]", r.RiskScore)
	}
	if want := RiskLevelForScore(r.RiskScore); r.RiskLevel != want {
		return fmt.Errorf("risk level %q does not match score %v (expected %q)", r.RiskLevel, r.RiskScore, want)
	}
	if r.Summary == "" {
		return errors.New("summary is required")
	}
	if len(r.Summary) > MaxSummaryLen {
		return fmt.Errorf("summary exceeds %d characters", MaxSummaryLen)
	}
	if n := len(r.KeySignals); n < MinKeySignals || n > MaxKeySignals {
		return fmt.Errorf("key_signals must have %d-%d items, got %d", MinKeySignals, MaxKeySignals, n)
	}
	for i := range r.FactChecks {
		if err := r.FactChecks[i].Validate(); err != nil {
			return fmt.Errorf("fact check %d: %w", i, err)
		}
	}
	return nil
}
