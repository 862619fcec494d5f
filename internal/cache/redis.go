package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flight-time-engine/internal/config"
	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/utils"
)

// RedisCache stores logbook utilization summaries as JSON blobs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.CacheConfig) *RedisCache {
	return New(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), cfg.TTL)
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetSummary returns the cached summary, or nil on a miss.
func (c *RedisCache) GetSummary(ctx context.Context, fleet model.FleetCategory, asOf time.Time, fingerprint string) (*engine.LogbookResult, error) {
	data, err := c.client.Get(ctx, SummaryKey(fleet, asOf, fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var res engine.LogbookResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	return &res, nil
}

func (c *RedisCache) SetSummary(ctx context.Context, fingerprint string, res engine.LogbookResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, SummaryKey(res.Fleet, res.AsOf, fingerprint), payload, c.ttl).Err()
}

// SummaryKey is keyed by fleet, as-of date and record snapshot, so any change
// to the logbook misses naturally and no explicit invalidation is needed.
func SummaryKey(fleet model.FleetCategory, asOf time.Time, fingerprint string) string {
	return fmt.Sprintf("cache:utilization:%s:%s:%s", fleet, utils.FormatCivilDate(asOf), fingerprint)
}
