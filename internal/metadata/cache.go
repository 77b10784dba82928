package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/metrics"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

const (
	keyPrefix = "dailymotion_video_"

	// DefaultTTL is how long a provider answer is reused.
	DefaultTTL = time.Hour
)

// CachedFetcher serves metadata from Redis, falling back to the wrapped
// Fetcher on a miss. Only successful answers are stored. Redis being
// unavailable degrades to uncached lookups.
type CachedFetcher struct {
	next    Fetcher
	rdb     *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewCachedFetcher wraps next with a Redis cache. A non-positive ttl uses DefaultTTL.
func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedFetcher{
		next:    next,
		rdb:     rdb,
		ttl:     ttl,
		metrics: m,
		log:     logger.Named("metadata"),
	}
}

// CacheKey returns the Redis key holding a video's metadata.
func CacheKey(videoID string) string {
	return keyPrefix + videoID
}

// FetchMetadata implements Fetcher.
func (c *CachedFetcher) FetchMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	key := CacheKey(videoID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var md Metadata
		if jsonErr := json.Unmarshal(cached, &md); jsonErr == nil {
			c.metrics.ObserveCacheLookup(true)
			return &md, nil
		}
		c.log.Warn("Discarding unreadable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Metadata cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.ObserveCacheLookup(false)

	md, err := c.next.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(md)
	if err != nil {
		return md, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("Metadata cache write failed", zap.String("key", key), zap.Error(err))
	}

	return md, nil
}
