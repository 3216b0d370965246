// Package store keeps discovery state that outlives a single request.
package store

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RaffleRegistry remembers every raffle ID discovery or the watcher has
// seen, in first-seen order. It backs discovery when the live sources
// come back empty.
type RaffleRegistry struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRaffleRegistry(client *redis.Client, key string) *RaffleRegistry {
	return &RaffleRegistry{client: client, key: key, now: time.Now}
}

// Record adds ids that are not yet known. Known IDs keep their position.
func (r *RaffleRegistry) Record(ctx context.Context, ids []string) error {
	if r.key == "" {
		return fmt.Errorf("raffle registry key is not configured")
	}
	if len(ids) == 0 {
		return nil
	}
	base := r.now().UnixMicro()
	members := make([]redis.Z, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		members = append(members, redis.Z{Score: float64(base + int64(i)), Member: id})
	}
	if len(members) == 0 {
		return nil
	}
	if err := r.client.ZAddNX(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("redis ZADD %s: %w", r.key, err)
	}
	return nil
}

// List returns every known raffle ID, oldest first.
func (r *RaffleRegistry) List(ctx context.Context) ([]string, error) {
	if r.key == "" {
		return nil, fmt.Errorf("raffle registry key is not configured")
	}
	ids, err := r.client.ZRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGE %s: %w", r.key, err)
	}
	return ids, nil
}
