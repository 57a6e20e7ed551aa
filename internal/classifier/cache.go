package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"parts-finder/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheConfig holds classifier cache configuration
type CacheConfig struct {
	TTL       time.Duration // Lifetime of a cached result
	KeyPrefix string        // Redis key prefix
}

// CachedAnalyzer serves repeated images from Redis. Cache failures are
// logged and the wrapped analyzer is called instead.
type CachedAnalyzer struct {
	next   Analyzer
	client *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// NewCachedAnalyzer wraps an analyzer with a Redis result cache
func NewCachedAnalyzer(next Analyzer, client *redis.Client, config CacheConfig, logger *zap.Logger) *CachedAnalyzer {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "classifier"
	}
	return &CachedAnalyzer{
		next:   next,
		client: client,
		config: config,
		logger: logger,
	}
}

// Analyze returns the cached result for identical image bytes when present
func (c *CachedAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error) {
	key := c.key(image)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached domain.AISearchResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.logger.Debug("Classifier cache hit", zap.String("key", key))
			return normalize(&cached), nil
		}
		c.logger.Warn("Discarding corrupt classifier cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Classifier cache read failed", zap.Error(err), zap.String("key", key))
	}

	result, err := c.next.Analyze(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to encode classifier result", zap.Error(err))
		return result, nil
	}
	if err := c.client.Set(ctx, key, payload, c.config.TTL).Err(); err != nil {
		c.logger.Warn("Classifier cache write failed", zap.Error(err), zap.String("key", key))
	}

	return result, nil
}

func (c *CachedAnalyzer) key(image []byte) string {
	sum := sha256.Sum256(image)
	return c.config.KeyPrefix + ":" + hex.EncodeToString(sum[:])
}
