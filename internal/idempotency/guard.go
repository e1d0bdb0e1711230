package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims request keys in Redis so a retried checkout is not turned into
// a second order.
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	return &Guard{rdb: rdb, ttl: ttl}
}

func (g *Guard) Key(scope, userID, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", scope, userID, key)
}

// Claim reports true when this call is the first to use key within the TTL.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the request can be retried.
func (g *Guard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
