package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// Classifier defaults.
const (
	DefaultModel           = "gpt-4o-mini"
	DefaultMaxParseRetries = 2
	DefaultTimeout         = 60 * time.Second
	defaultMaxTokens       = 4000
	defaultTemperature     = 0.2
)

// OpenAIConfig configures the OpenAI-backed classifier.
type OpenAIConfig struct {
	APIKey          string        `env:"OPENAI_API_KEY"          yaml:"api_key"`
	Model           string        `default:"gpt-4o-mini" env:"OPENAI_MODEL" yaml:"model"`
	MaxParseRetries int           `default:"2"  env:"CLASSIFIER_MAX_PARSE_RETRIES" yaml:"max_parse_retries"`
	Timeout         time.Duration `default:"60s" env:"CLASSIFIER_TIMEOUT" yaml:"timeout"`
}

// SetDefaults fills zero values with documented defaults.
func (c *OpenAIConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxParseRetries <= 0 {
		c.MaxParseRetries = DefaultMaxParseRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// OpenAIClassifier calls the OpenAI chat completions API and parses the
// JSON verdict. Malformed output is retried with the same prompt up to
// MaxParseRetries times (the model often fixes itself), then degraded to
// the fallback result. Transport failures surface as APIError so the
// caller's retry layer can decide whether to back off.
type OpenAIClassifier struct {
	client openai.Client
	cfg    OpenAIConfig
	logger logger.Logger
}

// NewOpenAI creates the classifier.
func NewOpenAI(cfg OpenAIConfig, log logger.Logger) *OpenAIClassifier {
	cfg.SetDefaults()
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	return &OpenAIClassifier{client: client, cfg: cfg, logger: log}
}

// Analyze implements Classifier.
func (c *OpenAIClassifier) Analyze(ctx context.Context, post *schema.CanonicalPost, image []byte) (*Result, error) {
	prompt := BuildPrompt(post, image != nil)
	var tokens int64

	for attempt := 0; attempt <= c.cfg.MaxParseRetries; attempt++ {
		content, used, err := c.complete(ctx, prompt, image)
		if err != nil {
			return nil, &APIError{Err: err}
		}
		tokens += used

		result, err := c.parseVerdict(content)
		if err != nil {
			c.logger.Warn("verdict parse failed",
				logger.Int("attempt", attempt+1),
				logger.Error(err))
			continue
		}
		return &Result{Analysis: result, TokensUsed: tokens}, nil
	}

	c.logger.Warn("verdict stayed malformed, serving fallback",
		logger.String("post_id", post.PostID),
		logger.Int("attempts", c.cfg.MaxParseRetries+1))
	fallback := FallbackResult(c.cfg.Model)
	fallback.TokensUsed = tokens
	return fallback, nil
}

func (c *OpenAIClassifier) complete(ctx context.Context, prompt string, image []byte) (string, int64, error) {
	userContent := openai.ChatCompletionUserMessageParamContentUnion{
		OfString: openai.String(prompt),
	}
	if image != nil {
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
		userContent = openai.ChatCompletionUserMessageParamContentUnion{
			OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
				{OfText: &openai.ChatCompletionContentPartTextParam{Text: prompt}},
				{OfImageURL: &openai.ChatCompletionContentPartImageParam{
					ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
				}},
			},
		}
	}

	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{Content: userContent},
			},
		},
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(defaultMaxTokens),
	})
	if err != nil {
		return "", 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", response.Usage.TotalTokens, fmt.Errorf("empty completion response")
	}
	return response.Choices[0].Message.Content, response.Usage.TotalTokens, nil
}

// verdictPayload mirrors the JSON contract in the prompt.
type verdictPayload struct {
	RiskScore  float64          `json:"risk_score"`
	RiskLevel  schema.RiskLevel `json:"risk_level"`
	Summary    string           `json:"summary"`
	KeySignals []string         `json:"key_signals"`
	FactChecks []struct {
		Claim       string              `json:"claim"`
		Verdict     schema.ClaimVerdict `json:"verdict"`
		Explanation string              `json:"explanation"`
		Citations   []schema.Citation   `json:"citations"`
	} `json:"fact_checks"`
}

// parseVerdict turns raw model output into a validated AnalysisResult.
func (c *OpenAIClassifier) parseVerdict(content string) (*schema.AnalysisResult, error) {
	text := stripFences(content)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	// Keep only structurally valid fact checks; one malformed entry
	// should not discard an otherwise usable verdict.
	var factChecks []schema.FactCheck
	for _, fc := range payload.FactChecks {
		check := schema.FactCheck{
			Claim:       fc.Claim,
			Verdict:     fc.Verdict,
			Explanation: fc.Explanation,
			Citations:   fc.Citations,
		}
		if err := check.Validate(); err != nil {
			c.logger.Warn("dropping malformed fact check", logger.Error(err))
			continue
		}
		factChecks = append(factChecks, check)
	}

	result, err := schema.NewAnalysisResult(
		payload.RiskScore,
		payload.RiskLevel,
		payload.Summary,
		payload.KeySignals,
		factChecks,
		c.cfg.Model,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return result, nil
}

// stripFences removes a surrounding markdown code block if the model
// wrapped its JSON in one.
func stripFences(s string) string {
	text := strings.TrimSpace(s)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
