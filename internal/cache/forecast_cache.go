package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast:item"
	forecastScanBatchSize = 100
)

// ForecastCache memoizes per-item forecast results. Keys include the
// horizon and the as-of date, so a cached entry can never be served for
// a different horizon or on a later day.
type ForecastCache interface {
	Get(ctx context.Context, item string, periods int, asOf domain.Day) (*domain.ForecastResult, bool, error)
	Set(ctx context.Context, item string, periods int, asOf domain.Day, result *domain.ForecastResult) error
	InvalidateItem(ctx context.Context, item string) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache returns the redis cache when enabled, otherwise a noop.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, item string, periods int, asOf domain.Day) (*domain.ForecastResult, bool, error) {
	payload, err := c.client.Get(ctx, forecastKey(item, periods, asOf)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, item string, periods int, asOf domain.Day, result *domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, forecastKey(item, periods, asOf), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateItem(ctx context.Context, item string) error {
	return deleteKeysWithPrefix(ctx, c.client, fmt.Sprintf("%s:%s:", forecastKeyPrefix, item), forecastScanBatchSize)
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix, forecastScanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, item string, periods int, asOf domain.Day) (*domain.ForecastResult, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, item string, periods int, asOf domain.Day, result *domain.ForecastResult) error {
	return nil
}

func (n *noopForecastCache) InvalidateItem(ctx context.Context, item string) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func forecastKey(item string, periods int, asOf domain.Day) string {
	return fmt.Sprintf("%s:%s:%d:%s", forecastKeyPrefix, item, periods, asOf)
}
