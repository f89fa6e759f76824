package analysis

import (
	"context"
	"time"

	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
)

// stageRetries is how many extra attempts a stage gets after its first
// failure. Only transient provider failures are retried; a response that
// fails to parse is returned immediately since resending the same prompt
// costs tokens without changing the schema.
const stageRetries = 2

var stageRetryDelay = time.Second

type stageOutput[T any] struct {
	result T
	usage  providers.TokenUsage
}

func runStage[T any](
	ctx context.Context,
	client providers.CompletionProvider,
	stage string,
	systemPrompt string,
	userPrompt string,
	parse func(string) (T, error),
) (*stageOutput[T], error) {
	logger := observability.LoggerFromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= stageRetries; attempt++ {
		completion, err := client.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			lastErr = err
			if providers.IsRetryable(err) && attempt < stageRetries {
				logger.Warn().
					Err(err).
					Str("stage", stage).
					Int("attempt", attempt+1).
					Msg("Stage attempt failed, retrying")

				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(stageRetryDelay * time.Duration(attempt+1)):
				}
				continue
			}
			return nil, lastErr
		}

		result, err := parse(completion.Text)
		if err != nil {
			return nil, err
		}

		return &stageOutput[T]{
			result: result,
			usage:  completion.Usage,
		}, nil
	}

	return nil, lastErr
}
