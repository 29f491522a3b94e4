package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const verdictCachePrefix = "gema:judge:verdict:"

// CachedJudge memoises successful verdicts in Redis so identical answers to
// the same question are judged once. Failures are never cached.
type CachedJudge struct {
	next   Judge
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedJudge wraps next with a Redis verdict cache. A nil client disables caching.
func NewCachedJudge(next Judge, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedJudge {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedJudge{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "judge_cache").Logger(),
	}
}

// Judge implements Judge.
func (c *CachedJudge) Judge(ctx context.Context, input EquivalenceInput) (Verdict, error) {
	if c.cache == nil {
		return c.next.Judge(ctx, input)
	}

	key := VerdictCacheKey(input)
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		var verdict Verdict
		if err := json.Unmarshal([]byte(cached), &verdict); err == nil {
			return verdict, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Msg("failed to read judge verdict cache")
	}

	verdict, err := c.next.Judge(ctx, input)
	if err != nil {
		return Verdict{}, err
	}

	if payload, err := json.Marshal(verdict); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to cache judge verdict")
		}
	}

	return verdict, nil
}

// VerdictCacheKey derives the cache key for an input.
func VerdictCacheKey(input EquivalenceInput) string {
	payload, _ := json.Marshal(input)
	sum := sha256.Sum256(payload)
	return verdictCachePrefix + hex.EncodeToString(sum[:])
}
