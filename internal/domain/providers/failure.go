package providers

import (
	"errors"
	"fmt"
)

// FailureKind classifies provider failures so retry and fallback decisions
// are made on a typed value rather than by inspecting error messages.
type FailureKind string

const (
	FailureTimeout           FailureKind = "timeout"
	FailureRateLimited       FailureKind = "rate_limited"
	FailureAuth              FailureKind = "auth"
	FailureQuota             FailureKind = "quota"
	FailureMalformed         FailureKind = "malformed"
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	FailureUnavailable       FailureKind = "unavailable"
	FailureUnknown           FailureKind = "unknown"
)

// Retryable reports whether resubmitting the same request can plausibly
// succeed: the provider was slow, throttling, or briefly down.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureRateLimited, FailureUnavailable:
		return true
	}
	return false
}

// Terminal reports failures that no retry or fallback provider can fix:
// bad credentials, exhausted quota, or audio the service cannot accept.
func (k FailureKind) Terminal() bool {
	switch k {
	case FailureAuth, FailureQuota, FailureUnsupportedFormat:
		return true
	}
	return false
}

// ProviderError is a classified failure from an external provider.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Message  string
	Err      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

// Unwrap exposes the wrapped error for errors.Is / errors.As
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a classified provider failure.
func NewProviderError(provider string, kind FailureKind, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from an error chain, defaulting to
// FailureUnknown for unclassified errors.
func KindOf(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnknown
}

// IsRetryable reports whether the error's classification allows a retry.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// IsTerminal reports whether the error's classification rules out both
// retries and fallback providers.
func IsTerminal(err error) bool {
	return KindOf(err).Terminal()
}
