package assemblyai

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
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

const providerName = "assemblyai"

// Client calls the AssemblyAI transcription API, the fallback speech-to-text
// provider. AssemblyAI processes asynchronously: upload the audio, create a
// transcript job, then poll it to completion.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
}

// NewClient creates a new AssemblyAI client.
func NewClient(cfg *config.TranscriptionConfig) (*Client, error) {
	if cfg == nil || cfg.AssemblyAIAPIKey == "" {
		return nil, errors.New("assemblyai api key is required")
	}

	return &Client{
		apiKey:       cfg.AssemblyAIAPIKey,
		baseURL:      defaultBaseURL,
		pollInterval: 2 * time.Second,
		maxPolls:     60,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	AudioDuration float64 `json:"audio_duration"`
	Words         []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
	Error string `json:"error"`
}

// Transcribe uploads the audio, requests a transcript, and polls until the
// job completes or the poll budget runs out.
func (c *Client) Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	uploadURL, err := c.upload(ctx, req.Audio)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = "en_us"
	}

	transcriptID, err := c.createTranscript(ctx, uploadURL, language)
	if err != nil {
		return nil, err
	}

	final, err := c.pollTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}

	words := make([]providers.TranscribedWord, 0, len(final.Words))
	for _, w := range final.Words {
		words = append(words, providers.TranscribedWord{
			Word:       w.Text,
			Start:      w.Start / 1000, // AssemblyAI reports milliseconds
			End:        w.End / 1000,
			Confidence: w.Confidence,
		})
	}

	return &providers.TranscriptionResult{
		Transcript:      final.Text,
		Confidence:      final.Confidence,
		DurationSeconds: final.AudioDuration,
		Words:           words,
		Provider:        providerName,
	}, nil
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.FailureUnknown, "failed to build upload request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var payload uploadResponse
	if err := c.doJSON(req, &payload); err != nil {
		return "", err
	}
	if payload.UploadURL == "" {
		return "", providers.NewProviderError(providerName, providers.FailureMalformed, "upload response missing url", nil)
	}
	return payload.UploadURL, nil
}

func (c *Client) createTranscript(ctx context.Context, audioURL, language string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"audio_url":     audioURL,
		"language_code": language,
		"punctuate":     true,
		"format_text":   true,
	})
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.FailureUnknown, "failed to encode transcript request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.FailureUnknown, "failed to build transcript request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var payload transcriptResponse
	if err := c.doJSON(req, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", providers.NewProviderError(providerName, providers.FailureMalformed, "transcript response missing id", nil)
	}
	return payload.ID, nil
}

func (c *Client) pollTranscript(ctx context.Context, transcriptID string) (*transcriptResponse, error) {
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+transcriptID, nil)
		if err != nil {
			return nil, providers.NewProviderError(providerName, providers.FailureUnknown, "failed to build status request", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		var payload transcriptResponse
		if err := c.doJSON(req, &payload); err != nil {
			return nil, err
		}

		switch payload.Status {
		case "completed":
			return &payload, nil
		case "error":
			return nil, providers.NewProviderError(providerName, providers.FailureUnknown, payload.Error, nil)
		}

		select {
		case <-ctx.Done():
			return nil, providers.NewProviderError(providerName, providers.FailureTimeout, "transcription cancelled", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}

	return nil, providers.NewProviderError(providerName, providers.FailureTimeout, "transcription did not complete in time", nil)
}

func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := providers.FailureUnknown
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = providers.FailureTimeout
		}
		return providers.NewProviderError(providerName, kind, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.NewProviderError(providerName, classifyStatus(resp.StatusCode),
			fmt.Sprintf("assemblyai request failed with status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return providers.NewProviderError(providerName, providers.FailureMalformed, "failed to decode response", err)
	}
	return nil
}

func classifyStatus(status int) providers.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.FailureAuth
	case status == http.StatusPaymentRequired:
		return providers.FailureQuota
	case status == http.StatusTooManyRequests:
		return providers.FailureRateLimited
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
