package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
	"github.com/healthsnap/backend/pkg/config"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// allowedMIMETypes lists the audio formats accepted for upload. Parameters
// such as ";codecs=opus" are stripped before the lookup.
var allowedMIMETypes = map[string]struct{}{
	"audio/webm": {},
	"audio/wav":  {},
	"audio/mp3":  {},
	"audio/mpeg": {},
	"audio/mp4":  {},
	"audio/ogg":  {},
	"audio/flac": {},
}

// Gateway routes transcription requests to a primary provider and falls
// back to a secondary one when the primary fails for a recoverable reason.
type Gateway struct {
	primary  providers.TranscriptionProvider
	fallback providers.TranscriptionProvider
	minBytes int
	maxBytes int
}

// NewGateway creates a transcription gateway. fallback may be nil, in which
// case primary failures are returned directly.
func NewGateway(primary, fallback providers.TranscriptionProvider, cfg *config.TranscriptionConfig) *Gateway {
	minBytes := 1024
	maxBytes := 10 * 1024 * 1024
	if cfg != nil {
		if cfg.MinAudioBytes > 0 {
			minBytes = cfg.MinAudioBytes
		}
		if cfg.MaxAudioBytes > 0 {
			maxBytes = cfg.MaxAudioBytes
		}
	}

	return &Gateway{
		primary:  primary,
		fallback: fallback,
		minBytes: minBytes,
		maxBytes: maxBytes,
	}
}

// Transcribe validates the audio payload and runs it through the primary
// provider, then the fallback. Terminal failures such as bad credentials or
// an exhausted quota skip the fallback since it would not change the
// outcome for that request.
func (g *Gateway) Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	if err := g.validate(req); err != nil {
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)

	result, primaryErr := g.primary.Transcribe(ctx, req)
	observability.RecordTranscriptionRequest(ctx, g.primary.Name(), primaryErr == nil)
	if primaryErr == nil {
		return result, nil
	}

	if g.fallback == nil {
		return nil, apperrors.NewExternalError("transcription failed", primaryErr)
	}

	if providers.IsTerminal(primaryErr) {
		logger.Warn().
			Err(primaryErr).
			Str("provider", g.primary.Name()).
			Msg("Transcription failed with a terminal error, skipping fallback")
		return nil, apperrors.NewExternalError("transcription failed", primaryErr)
	}

	logger.Warn().
		Err(primaryErr).
		Str("provider", g.primary.Name()).
		Str("fallback", g.fallback.Name()).
		Msg("Primary transcription failed, trying fallback provider")

	result, fallbackErr := g.fallback.Transcribe(ctx, req)
	observability.RecordTranscriptionRequest(ctx, g.fallback.Name(), fallbackErr == nil)
	if fallbackErr == nil {
		return result, nil
	}

	logger.Error().
		Err(fallbackErr).
		Str("provider", g.fallback.Name()).
		Msg("Fallback transcription failed")

	// The primary error describes the root cause better than the
	// fallback's, so it is the one callers see.
	return nil, apperrors.NewExternalError("transcription failed", primaryErr)
}

func (g *Gateway) validate(req providers.TranscriptionRequest) error {
	if len(req.Audio) == 0 {
		return apperrors.NewValidationError("audio payload is empty")
	}
	if len(req.Audio) < g.minBytes {
		return apperrors.NewValidationError(fmt.Sprintf("audio payload is too small, minimum is %d bytes", g.minBytes))
	}
	if len(req.Audio) > g.maxBytes {
		return apperrors.NewValidationError(fmt.Sprintf("audio payload is too large, maximum is %d bytes", g.maxBytes))
	}

	mimeType := req.MIMEType
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if _, ok := allowedMIMETypes[mimeType]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported audio format %q", req.MIMEType))
	}
	return nil
}
