package cache

import (
	"context"
	"fmt"
	"time"

	"nashidona/db"
	"nashidona/logger"
)

// CounterCache tracks best-effort play/download counters in Redis.
// Increments are fire-and-forget: failures are logged, never surfaced, and
// no exact-once guarantee is attempted.
type CounterCache struct{}

// NewCounterCache creates a CounterCache using the shared Redis client.
func NewCounterCache() *CounterCache {
	return &CounterCache{}
}

func downloadKey(trackID int64) string {
	return fmt.Sprintf("counter:downloads:%d", trackID)
}

func playKey(trackID int64) string {
	return fmt.Sprintf("counter:plays:%d", trackID)
}

// IncrementDownloads bumps the download counter for a track.
func (c *CounterCache) IncrementDownloads(ctx context.Context, trackID int64) {
	c.increment(ctx, downloadKey(trackID), trackID)
}

// IncrementPlays bumps the play counter for a track.
func (c *CounterCache) IncrementPlays(ctx context.Context, trackID int64) {
	c.increment(ctx, playKey(trackID), trackID)
}

func (c *CounterCache) increment(ctx context.Context, key string, trackID int64) {
	if db.RedisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.RedisClient.Incr(ctx, key).Err(); err != nil {
		logger.Warn("counter increment failed",
			logger.String("key", key),
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
}

// GetDownloads reads the current download counter, used by ops tooling.
func (c *CounterCache) GetDownloads(ctx context.Context, trackID int64) (int64, error) {
	if db.RedisClient == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}
	return db.RedisClient.Get(ctx, downloadKey(trackID)).Int64()
}

// GetPlays reads the current play counter.
func (c *CounterCache) GetPlays(ctx context.Context, trackID int64) (int64, error) {
	if db.RedisClient == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}
	return db.RedisClient.Get(ctx, playKey(trackID)).Int64()
}
