package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"story-endings/internal/model"
)

const (
	highlightsKey = "endings:highlights"
	generationKey = "endings:highlights:generation"
)

// HighlightCache keeps the landing page singletons in Redis so the list view
// does not hit the database on every request.
type HighlightCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewHighlightCache(client *redisv9.Client, ttl time.Duration) *HighlightCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HighlightCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *HighlightCache) Get(ctx context.Context) (*model.Highlights, bool, error) {
	raw, err := c.client.Get(ctx, highlightsKey).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get highlights failed: %w", err)
	}

	var highlights model.Highlights
	if err := json.Unmarshal([]byte(raw), &highlights); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached highlights failed: %w", err)
	}
	return &highlights, true, nil
}

// Generation reads the counter Invalidate bumps. A missing key is generation 0.
func (c *HighlightCache) Generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get highlights generation failed: %w", err)
	}
	return generation, nil
}

// Set stores highlights read under generation. The write is skipped when an
// Invalidate has moved the generation on since then.
func (c *HighlightCache) Set(ctx context.Context, generation int64, highlights model.Highlights) error {
	payload, err := json.Marshal(highlights)
	if err != nil {
		return fmt.Errorf("marshal highlights failed: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && err != redisv9.Nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, highlightsKey, payload, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	if err == redisv9.TxFailedErr {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set highlights failed: %w", err)
	}
	return nil
}

func (c *HighlightCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, highlightsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete highlights failed: %w", err)
	}
	return nil
}
