package vinlookup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	SourceCache = "cache"
	keyPrefix   = "vinlookup:"
)

// Lookuper is satisfied by Client and by CachedLookup itself.
type Lookuper interface {
	Lookup(ctx context.Context, vin string) (models.VehicleAttributes, error)
}

// CachedLookup serves attributes from Redis and falls back to the wrapped
// lookup on a miss. Redis errors degrade to an uncached lookup. Failed
// lookups are never cached.
type CachedLookup struct {
	next  Lookuper
	redis redis.Cmdable
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedLookup(next Lookuper, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedLookup {
	return &CachedLookup{next: next, redis: rdb, ttl: ttl, log: log}
}

func cacheKey(vin string) string {
	return keyPrefix + models.NormalizeVIN(vin)
}

func (c *CachedLookup) Lookup(ctx context.Context, vin string) (models.VehicleAttributes, error) {
	key := cacheKey(vin)
	start := time.Now()

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var attrs models.VehicleAttributes
		if jsonErr := json.Unmarshal(raw, &attrs); jsonErr == nil {
			metrics.RecordVINLookup(SourceCache, nil, time.Since(start))
			return attrs, nil
		}
		c.log.Warn("discarding corrupt cached VIN entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.log.Warn("VIN cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	attrs, err := c.next.Lookup(ctx, vin)
	if err != nil {
		return models.VehicleAttributes{}, err
	}

	payload, err := json.Marshal(attrs)
	if err == nil {
		err = c.redis.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.log.Warn("VIN cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return attrs, nil
}
