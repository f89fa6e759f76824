package providers

import (
	"context"
)

// TokenUsage counts tokens consumed by one completion request.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Completion is the raw text output of one model request plus usage.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// CompletionProvider issues one structured-completion request against a
// language model. Failures are returned as *ProviderError.
type CompletionProvider interface {
	// Model identifies the configured model for audit metadata.
	Model() string

	// Complete sends a system and user prompt and returns the raw text reply.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
}
