package providers

import (
	"context"
)

// TranscribedWord is one word with timing and confidence.
type TranscribedWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionRequest carries raw audio into a speech-to-text provider.
type TranscriptionRequest struct {
	Audio    []byte
	MIMEType string
	Language string
}

// TranscriptionResult is a successful provider transcription.
type TranscriptionResult struct {
	Transcript      string            `json:"transcript"`
	Confidence      float64           `json:"confidence"`
	DurationSeconds float64           `json:"durationSeconds"`
	Words           []TranscribedWord `json:"words,omitempty"`
	Provider        string            `json:"provider"`
}

// TranscriptionProvider is one speech-to-text backend. Implementations
// return *ProviderError so the gateway can decide on retry and fallback.
type TranscriptionProvider interface {
	// Name identifies the provider in results and logs.
	Name() string

	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResult, error)
}
