package classifier

import (
	"context"
	"errors"
	"time"

	"parts-finder/internal/domain"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryingAnalyzer retries failed classifications with exponential backoff.
// With zero retries it makes exactly one attempt.
type RetryingAnalyzer struct {
	next       Analyzer
	maxRetries uint64
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewRetryingAnalyzer wraps an analyzer with a retry policy
func NewRetryingAnalyzer(next Analyzer, maxRetries uint64, baseDelay time.Duration, logger *zap.Logger) *RetryingAnalyzer {
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &RetryingAnalyzer{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Analyze calls the wrapped analyzer until it succeeds or retries run out.
// A missing credential is never retried.
func (r *RetryingAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.baseDelay))

	var (
		result  *domain.AISearchResult
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := r.next.Analyze(ctx, image, mimeType)
		if err != nil {
			if errors.Is(err, ErrMissingCredential) {
				return err
			}
			r.logger.Debug("Image analysis attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, serviceError("retry.Analyze", err)
	}

	return result, nil
}
