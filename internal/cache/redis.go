package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	recentSwapsKey  = "swaps:recent"
	swapsChannelAll = "swaps:all"
)

// RedisCache holds recent swaps and short-lived report snapshots.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

func (r *RedisCache) Client() *redis.Client { return r.client }

// RecordSwap pushes to the capped recent list and publishes on swaps:all.
func (r *RedisCache) RecordSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentSwapsKey, data)
	pipe.LTrim(ctx, recentSwapsKey, 0, constants.MaxRecentTrades-1)
	pipe.Publish(ctx, swapsChannelAll, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 {
		limit = constants.MaxRecentTrades
	}
	raw, err := r.client.LRange(ctx, recentSwapsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(raw))
	for _, s := range raw {
		var ev models.SwapEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			r.logger.WithError(err).Warn("skipping malformed swap entry")
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

// GetJSON reads report:<key>. A miss returns ok=false and no error.
func (r *RedisCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := r.client.Get(ctx, constants.RedisKeyReportPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, constants.RedisKeyReportPrefix+key, b, ttl).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
