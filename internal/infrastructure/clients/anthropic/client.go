package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultBaseURL = "https://api.anthropic.com/v1"

const apiVersion = "2023-06-01"

const providerName = "anthropic"

// Client implements the Anthropic completion provider used by the analysis
// stages.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new Anthropic client.
func NewClient(cfg *config.AnthropicConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &Client{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messageEnvelope struct {
	Content []messageContent `json:"content"`
	Usage   messageUsage     `json:"usage"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a single system+user exchange to the messages API and
// returns the text of the first content block along with token usage.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (*providers.Completion, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordAnthropicMetric(ctx, c.model, 0, 0, err)
			return nil, providers.NewProviderError(providerName, providers.FailureTimeout, "rate limiter wait cancelled", err)
		}
		recordAnthropicRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.FailureUnknown, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.FailureUnknown, "failed to build request", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordAnthropicMetric(ctx, c.model, 0, time.Since(start), err)
		kind := providers.FailureUnknown
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = providers.FailureTimeout
		}
		return nil, providers.NewProviderError(providerName, kind, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))

		var apiErr errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		message := apiErr.Error.Message
		if message == "" {
			message = fmt.Sprintf("anthropic request failed with status %d", resp.StatusCode)
		}
		return nil, providers.NewProviderError(providerName, classifyStatus(resp.StatusCode), message, nil)
	}

	var envelope messageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, providers.NewProviderError(providerName, providers.FailureMalformed, "failed to decode response", err)
	}

	var text string
	for _, content := range envelope.Content {
		if content.Type == "text" && content.Text != "" {
			text = content.Text
			break
		}
	}

	if text == "" {
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing text content"))
		return nil, providers.NewProviderError(providerName, providers.FailureMalformed, "response missing text content", nil)
	}

	recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return &providers.Completion{
		Text: text,
		Usage: providers.TokenUsage{
			Input:  envelope.Usage.InputTokens,
			Output: envelope.Usage.OutputTokens,
		},
	}, nil
}

func classifyStatus(status int) providers.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.FailureAuth
	case status == http.StatusPaymentRequired:
		return providers.FailureQuota
	case status == http.StatusTooManyRequests:
		return providers.FailureRateLimited
	// Covers 529, Anthropic's overloaded signal.
	case status >= 500:
		return providers.FailureUnavailable
	default:
		return providers.FailureUnknown
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type anthropicMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var metricsInit = false
var metrics anthropicMetrics

func ensureMetrics() {
	if metricsInit {
		return
	}
	meter := otel.Meter("github.com/healthsnap/backend/anthropic")

	requestCount, err := meter.Int64Counter(
		"ai.anthropic.request.count",
		metric.WithDescription("Number of Anthropic requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.anthropic.request.duration",
		metric.WithDescription("Anthropic request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.anthropic.request.errors",
		metric.WithDescription("Number of Anthropic request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.anthropic.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the Anthropic rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	metrics = anthropicMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	metricsInit = true
}

func recordAnthropicMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureMetrics()
	if !metricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", providerName),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordAnthropicRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureMetrics()
	if !metricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", providerName),
		attribute.String("ai.model", model),
	}
	metrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
