package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/models"
)

const reportKeyPrefix = "report:"

// Cache keeps generated reports for later export.
type Cache interface {
	Put(ctx context.Context, r *models.Report) error
	Get(ctx context.Context, id string) (*models.Report, error)
}

type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, TTL: ttl}
}

func (c *RedisCache) Put(ctx context.Context, r *models.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	if err := c.Client.Set(ctx, reportKeyPrefix+r.ID, data, c.TTL).Err(); err != nil {
		return apperr.Storage("cache report", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, id string) (*models.Report, error) {
	data, err := c.Client.Get(ctx, reportKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrReportNotFound
	}
	if err != nil {
		return nil, apperr.Storage("load cached report", err)
	}
	var r models.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, apperr.Storage("decode cached report", err)
	}
	return &r, nil
}

// NopCache is used when Redis is disabled. Nothing is ever found.
type NopCache struct{}

func (NopCache) Put(context.Context, *models.Report) error { return nil }

func (NopCache) Get(context.Context, string) (*models.Report, error) {
	return nil, apperr.ErrReportNotFound
}
