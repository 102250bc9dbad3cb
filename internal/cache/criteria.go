package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/open-procurement/ecatalog/internal/models"
)

const defaultTTL = 5 * time.Minute

// CriterionCache is a read-through redis cache for criterion records. A nil
// cache is valid and degrades to repository-only lookups; cache failures are
// logged, never surfaced to callers.
type CriterionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCriterionCache connects to redis and verifies connectivity.
func NewCriterionCache(address, password string) (*CriterionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CriterionCache{client: client, ttl: defaultTTL}, nil
}

func key(id uuid.UUID) string {
	return "criterion:" + id.String()
}

// Get returns the cached criterion, or nil on miss.
func (c *CriterionCache) Get(ctx context.Context, id uuid.UUID) *models.Criterion {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("criterion cache read failed", "id", id, "error", err)
		}
		return nil
	}

	var criterion models.Criterion
	if err := json.Unmarshal(data, &criterion); err != nil {
		slog.Warn("criterion cache entry corrupt", "id", id, "error", err)
		return nil
	}
	return &criterion
}

// Set stores a criterion with the cache TTL.
func (c *CriterionCache) Set(ctx context.Context, criterion *models.Criterion) {
	if c == nil || criterion == nil {
		return
	}

	data, err := json.Marshal(criterion)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(criterion.ID), data, c.ttl).Err(); err != nil {
		slog.Warn("criterion cache write failed", "id", criterion.ID, "error", err)
	}
}

// Invalidate drops a criterion entry after a write.
func (c *CriterionCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		slog.Warn("criterion cache invalidation failed", "id", id, "error", err)
	}
}

// Close closes the redis connection.
func (c *CriterionCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
