package transcription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/pkg/config"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

type fakeProvider struct {
	name   string
	result *providers.TranscriptionResult
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testConfig() *config.TranscriptionConfig {
	return &config.TranscriptionConfig{
		MinAudioBytes: 16,
		MaxAudioBytes: 1024,
	}
}

func validRequest() providers.TranscriptionRequest {
	return providers.TranscriptionRequest{
		Audio:    make([]byte, 64),
		MIMEType: "audio/webm;codecs=opus",
	}
}

func TestGatewayUsesPrimary(t *testing.T) {
	primary := &fakeProvider{
		name:   "deepgram",
		result: &providers.TranscriptionResult{Transcript: "hello", Provider: "deepgram"},
	}
	fallback := &fakeProvider{name: "assemblyai"}

	gw := NewGateway(primary, fallback, testConfig())

	result, err := gw.Transcribe(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Transcript)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestGatewayFallsBackOnRecoverableFailure(t *testing.T) {
	primary := &fakeProvider{
		name: "deepgram",
		err:  providers.NewProviderError("deepgram", providers.FailureTimeout, "request timed out", nil),
	}
	fallback := &fakeProvider{
		name:   "assemblyai",
		result: &providers.TranscriptionResult{Transcript: "hello", Provider: "assemblyai"},
	}

	gw := NewGateway(primary, fallback, testConfig())

	result, err := gw.Transcribe(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "assemblyai", result.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestGatewaySkipsFallbackOnTerminalFailure(t *testing.T) {
	terminalKinds := []providers.FailureKind{
		providers.FailureAuth,
		providers.FailureQuota,
		providers.FailureUnsupportedFormat,
	}

	for _, kind := range terminalKinds {
		primary := &fakeProvider{
			name: "deepgram",
			err:  providers.NewProviderError("deepgram", kind, "terminal failure", nil),
		}
		fallback := &fakeProvider{name: "assemblyai"}

		gw := NewGateway(primary, fallback, testConfig())

		_, err := gw.Transcribe(context.Background(), validRequest())
		require.Error(t, err)
		assert.Equal(t, 0, fallback.calls, "fallback must not run for kind %s", kind)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	}
}

func TestGatewayReturnsPrimaryErrorWhenBothFail(t *testing.T) {
	primaryErr := providers.NewProviderError("deepgram", providers.FailureUnavailable, "service down", nil)
	primary := &fakeProvider{name: "deepgram", err: primaryErr}
	fallback := &fakeProvider{
		name: "assemblyai",
		err:  providers.NewProviderError("assemblyai", providers.FailureTimeout, "request timed out", nil),
	}

	gw := NewGateway(primary, fallback, testConfig())

	_, err := gw.Transcribe(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, 1, fallback.calls)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "deepgram", provErr.Provider)
}

func TestGatewayValidation(t *testing.T) {
	primary := &fakeProvider{name: "deepgram"}
	gw := NewGateway(primary, nil, testConfig())

	tests := []struct {
		name string
		req  providers.TranscriptionRequest
	}{
		{"empty audio", providers.TranscriptionRequest{MIMEType: "audio/webm"}},
		{"too small", providers.TranscriptionRequest{Audio: make([]byte, 4), MIMEType: "audio/webm"}},
		{"too large", providers.TranscriptionRequest{Audio: make([]byte, 2048), MIMEType: "audio/webm"}},
		{"bad mime type", providers.TranscriptionRequest{Audio: make([]byte, 64), MIMEType: "video/mp4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.Transcribe(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			assert.Equal(t, 0, primary.calls)
		})
	}
}

func TestGatewayAcceptsParameterizedMIMEType(t *testing.T) {
	primary := &fakeProvider{
		name:   "deepgram",
		result: &providers.TranscriptionResult{Transcript: "ok"},
	}
	gw := NewGateway(primary, nil, testConfig())

	req := validRequest()
	req.MIMEType = "Audio/WAV; rate=16000"

	_, err := gw.Transcribe(context.Background(), req)
	require.NoError(t, err)
}
