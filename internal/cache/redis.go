package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/refurnish/internal/cart"
)

// RedisCache implements cart.Cache and cart.SelectionStore on a shared
// Redis instance. Snapshot TTLs carry jitter so a burst of users doesn't
// expire at once; selections live longer since they are session state.
type RedisCache struct {
	client       *redis.Client
	baseTTL      time.Duration
	selectionTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:       client,
		baseTTL:      15 * time.Minute,
		selectionTTL: 24 * time.Hour,
	}
}

func snapshotKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func selectionKey(userID string) string {
	return fmt.Sprintf("cart-selection:%s", userID)
}

func (r *RedisCache) Get(ctx context.Context, userID string) ([]cart.Line, error) {
	data, err := r.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, snapshotKey(userID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Selected(ctx context.Context, userID string) (map[string]bool, error) {
	members, err := r.client.SMembers(ctx, selectionKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}
	selected := make(map[string]bool, len(members))
	for _, m := range members {
		selected[m] = true
	}
	return selected, nil
}

func (r *RedisCache) SetSelected(ctx context.Context, userID, lineID string, selected bool) error {
	key := selectionKey(userID)
	var err error
	if selected {
		err = r.client.SAdd(ctx, key, lineID).Err()
	} else {
		err = r.client.SRem(ctx, key, lineID).Err()
	}
	if err != nil {
		return fmt.Errorf("redis selection update failed: %w", err)
	}
	if selected {
		if err := r.client.Expire(ctx, key, r.selectionTTL).Err(); err != nil {
			return fmt.Errorf("redis selection expire failed: %w", err)
		}
	}
	return nil
}

func (r *RedisCache) Clear(ctx context.Context, userID string, lineIDs ...string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(lineIDs))
	for i, id := range lineIDs {
		members[i] = id
	}
	if err := r.client.SRem(ctx, selectionKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("redis selection clear failed: %w", err)
	}
	return nil
}
