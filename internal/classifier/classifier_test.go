package classifier

import (
	"strings"
	"testing"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

func testClassifier(t *testing.T) *OpenAIClassifier {
	t.Helper()
	return NewOpenAI(OpenAIConfig{APIKey: "test-key"}, logger.NewNop())
}

const validVerdictJSON = `{
  "risk_score": 0.92,
  "risk_level": "Critical",
  "summary": "Classic advance-fee scam pattern with urgency framing.",
  "key_signals": ["guaranteed returns claim", "urgency markers", "payment in cryptocurrency"],
  "fact_checks": [
    {
      "claim": "Guaranteed 10x returns",
      "verdict": "False",
      "explanation": "No investment can guarantee returns.",
      "citations": [{"source_name": "SEC", "url": "https://sec.gov/investor-alerts"}]
    }
  ]
}`

func TestParseVerdict_Valid(t *testing.T) {
	c := testClassifier(t)

	result, err := c.parseVerdict(validVerdictJSON)
	if err != nil {
		t.Fatalf("parseVerdict() error = %v", err)
	}
	if result.RiskScore != 0.92 || result.RiskLevel != schema.RiskCritical {
		t.Errorf("result = %+v", result)
	}
	if len(result.FactChecks) != 1 {
		t.Errorf("FactChecks = %+v", result.FactChecks)
	}
	if result.ModelVersion != DefaultModel {
		t.Errorf("ModelVersion = %q", result.ModelVersion)
	}
}

func TestParseVerdict_FencedJSON(t *testing.T) {
	c := testClassifier(t)
	fenced := "```json\n" + validVerdictJSON + "\n```"

	result, err := c.parseVerdict(fenced)
	if err != nil {
		t.Fatalf("parseVerdict() error = %v for fenced output", err)
	}
	if result.RiskLevel != schema.RiskCritical {
		t.Errorf("RiskLevel = %v", result.RiskLevel)
	}
}

func TestParseVerdict_Malformed(t *testing.T) {
	c := testClassifier(t)
	tests := []struct {
		name string
		in   string
	}{
		{"not json", "I think this content is risky."},
		{"level mismatch", `{"risk_score": 0.1, "risk_level": "Critical", "summary": "s", "key_signals": ["a","b"]}`},
		{"score out of range", `{"risk_score": 1.5, "risk_level": "Critical", "summary": "s", "key_signals": ["a","b"]}`},
		{"too few signals", `{"risk_score": 0.5, "risk_level": "Moderate", "summary": "s", "key_signals": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.parseVerdict(tt.in); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

// One bad fact check must not sink an otherwise valid verdict.
func TestParseVerdict_DropsMalformedFactChecks(t *testing.T) {
	c := testClassifier(t)
	in := `{
	  "risk_score": 0.5, "risk_level": "Moderate", "summary": "s",
	  "key_signals": ["a", "b"],
	  "fact_checks": [
	    {"claim": "no citations", "verdict": "False", "explanation": "e", "citations": []},
	    {"claim": "sound", "verdict": "Unverifiable", "explanation": "e",
	     "citations": [{"source_name": "src", "url": "https://src"}]}
	  ]
	}`

	result, err := c.parseVerdict(in)
	if err != nil {
		t.Fatalf("parseVerdict() error = %v", err)
	}
	if len(result.FactChecks) != 1 || result.FactChecks[0].Claim != "sound" {
		t.Errorf("FactChecks = %+v", result.FactChecks)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFallbackResult(t *testing.T) {
	r := FallbackResult("model-x")

	if !r.Fallback {
		t.Error("Fallback flag not set")
	}
	if r.Analysis.RiskScore != 0.5 || r.Analysis.RiskLevel != schema.RiskModerate {
		t.Errorf("fallback verdict = %v/%v", r.Analysis.RiskScore, r.Analysis.RiskLevel)
	}
	if !strings.Contains(r.Analysis.Summary, "Manual review") {
		t.Errorf("Summary = %q", r.Analysis.Summary)
	}
	if err := r.Analysis.Validate(); err != nil {
		t.Errorf("fallback result fails validation: %v", err)
	}
}

func TestBuildPrompt_AllSectionsPresent(t *testing.T) {
	verified := true
	likes := int64(1200)
	post := &schema.CanonicalPost{
		PostID:   "twitter_x_1",
		PostText: "URGENT: send crypto now",
		Platform: schema.PlatformTwitter,
		AuthorMetadata: &schema.AuthorMetadata{
			AuthorType:          schema.AuthorTypeIndividual,
			AccountAgeBucket:    schema.AccountAgeNew,
			IsVerified:          &verified,
			FollowerCountBucket: "0-100",
		},
		EngagementMetrics: &schema.EngagementMetrics{Likes: &likes},
		MediaFeatures:     &schema.MediaFeatures{Caption: "screenshot of a wallet", OCRText: "send 1 BTC"},
		ExternalLinks:     []string{"https://scam.example"},
		SampledComments:   []string{"this is fake"},
	}

	prompt := BuildPrompt(post, false)
	for _, want := range []string{
		`"URGENT: send crypto now"`,
		"Platform: twitter",
		"account age new",
		"verified",
		"followers 0-100",
		"1200 likes",
		"screenshot of a wallet",
		`"send 1 BTC"`,
		"https://scam.example",
		"this is fake",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// Absent optional fields must degrade to fixed placeholders, keeping the
// prompt shape stable.
func TestBuildPrompt_MinimalPost(t *testing.T) {
	post := &schema.CanonicalPost{
		PostID:   "unknown_paste_abc",
		PostText: "plain text",
		Platform: schema.PlatformUnknown,
	}

	prompt := BuildPrompt(post, false)
	for _, want := range []string{
		"Media: None",
		"Author: Unknown",
		"Engagement: Unknown",
		"External links: None",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing placeholder %q", want)
		}
	}
	if strings.Contains(prompt, "Sampled comments") {
		t.Error("empty comments section should be omitted")
	}
}

func TestBuildPrompt_ImageDirective(t *testing.T) {
	post := &schema.CanonicalPost{PostID: "p", PostText: "t", Platform: schema.PlatformUnknown}

	with := BuildPrompt(post, true)
	without := BuildPrompt(post, false)
	if !strings.Contains(with, "An image accompanies this content") {
		t.Error("image directive missing when an image is supplied")
	}
	if strings.Contains(without, "An image accompanies this content") {
		t.Error("image directive present without an image")
	}
}
