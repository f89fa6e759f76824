package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/pkg/config"
)

const defaultBaseURL = "https://api.deepgram.com/v1"

const providerName = "deepgram"

// Client calls the Deepgram pre-recorded transcription API. It is the
// primary speech-to-text provider.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

// NewClient creates a new Deepgram client.
func NewClient(cfg *config.TranscriptionConfig) (*Client, error) {
	if cfg == nil || cfg.DeepgramAPIKey == "" {
		return nil, errors.New("deepgram api key is required")
	}

	model := cfg.DeepgramModel
	if model == "" {
		model = "nova-2"
	}

	return &Client{
		apiKey:     cfg.DeepgramAPIKey,
		model:      model,
		baseURL:    defaultBaseURL,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word           string  `json:"word"`
					Start          float64 `json:"start"`
					End            float64 `json:"end"`
					Confidence     float64 `json:"confidence"`
					PunctuatedWord string  `json:"punctuated_word"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

type apiError struct {
	ErrCode string `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// Transcribe sends audio to the listen endpoint. Timeout and 429 responses
// are retried with a linearly growing delay; auth and quota failures are
// returned immediately as terminal.
func (c *Client) Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	language := req.Language
	if language == "" {
		language = "en-US"
	}

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("language", language)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")

	endpoint := c.baseURL + "/listen?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.doListen(ctx, endpoint, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Only slow or throttled responses are worth resubmitting to the
		// same provider; 5xx goes straight back so the gateway can fall over.
		kind := providers.KindOf(err)
		if (kind != providers.FailureTimeout && kind != providers.FailureRateLimited) || attempt == c.maxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, providers.NewProviderError(providerName, providers.FailureTimeout, "transcription cancelled", ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}

	return nil, lastErr
}

func (c *Client) doListen(ctx context.Context, endpoint string, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.FailureUnknown, "failed to build request", err)
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)
	httpReq.Header.Set("Content-Type", req.MIMEType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := providers.FailureUnknown
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = providers.FailureTimeout
		}
		return nil, providers.NewProviderError(providerName, kind, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.ErrMsg
		if msg == "" {
			msg = fmt.Sprintf("deepgram request failed with status %d", resp.StatusCode)
		}
		return nil, providers.NewProviderError(providerName, classifyStatus(resp.StatusCode), msg, nil)
	}

	var payload listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, providers.NewProviderError(providerName, providers.FailureMalformed, "failed to decode response", err)
	}

	if len(payload.Results.Channels) == 0 || len(payload.Results.Channels[0].Alternatives) == 0 {
		return nil, providers.NewProviderError(providerName, providers.FailureMalformed, "no transcription result returned", nil)
	}

	alt := payload.Results.Channels[0].Alternatives[0]
	words := make([]providers.TranscribedWord, 0, len(alt.Words))
	for _, w := range alt.Words {
		word := w.PunctuatedWord
		if word == "" {
			word = w.Word
		}
		words = append(words, providers.TranscribedWord{
			Word:       word,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
		})
	}

	return &providers.TranscriptionResult{
		Transcript:      alt.Transcript,
		Confidence:      alt.Confidence,
		DurationSeconds: payload.Metadata.Duration,
		Words:           words,
		Provider:        providerName,
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
	case status == http.StatusUnsupportedMediaType:
		return providers.FailureUnsupportedFormat
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
