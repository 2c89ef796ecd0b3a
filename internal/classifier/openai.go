package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI-backed classifier.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	Retry       RetryPolicy
}

// DefaultOpenAIConfig returns defaults for alert classification.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:       openai.GPT4o,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
		Retry:       DefaultRetryPolicy(),
	}
}

// OpenAIClassifier classifies signals with a chat completion model.
type OpenAIClassifier struct {
	client *openai.Client
	config OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIClassifier creates a classifier backed by the OpenAI API.
func NewOpenAIClassifier(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClassifier {
	defaults := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger.With("component", "classifier", "model", cfg.Model),
	}
}

// verdict mirrors the JSON object requested from the model. Threat level is a
// float because models do not reliably emit integers.
type verdict struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
	ThreatLevel     float64  `json:"threatLevel"`
	Confidence      float64  `json:"confidence"`
}

// Classify implements Classifier.
func (c *OpenAIClassifier) Classify(ctx context.Context, sig Signal) (models.Analysis, error) {
	start := time.Now()

	request := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(sig)},
		},
	}

	var resp openai.ChatCompletionResponse
	attempt := 0
	err := Retry(ctx, c.config.Retry, func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		var callErr error
		resp, callErr = c.client.CreateChatCompletion(callCtx, request)
		if callErr != nil && isRateLimited(callErr) {
			c.logger.Warn("openai rate limit hit", "zone", sig.ZoneName, "attempt", attempt, "error", callErr)
			return &RetryableError{Err: callErr, RetryAfter: retryAfter(resp)}
		}
		return callErr
	})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.logger.Debug("openai call complete",
		"zone", sig.ZoneName,
		"attempts", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return models.Analysis{}, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		content = "{}"
	}

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return models.Analysis{}, fmt.Errorf("%w: decode verdict: %w", ErrUnavailable, err)
	}

	return Normalize(models.Analysis{
		Kind:            models.AlertKind(v.Type),
		Title:           v.Title,
		Description:     v.Description,
		Recommendations: v.Recommendations,
		ThreatLevel:     int(math.Round(clampFloat(v.ThreatLevel, 0, 100))),
		Confidence:      v.Confidence,
	})
}

// retryAfter reads the server's backoff hint from a rate-limited response:
// Retry-After (seconds or HTTP date), then retry-after-ms, then the request
// window reset. Zero means no usable hint.
func retryAfter(resp openai.ChatCompletionResponse) time.Duration {
	h := resp.Header()
	if h == nil {
		return 0
	}

	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	if v := h.Get("retry-after-ms"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	if reset := resp.GetRateLimitHeaders().ResetRequests.String(); reset != "" {
		if d, err := time.ParseDuration(reset); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
