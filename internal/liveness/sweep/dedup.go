package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryDedup is the process-local reminder dedup store. Single-node
// deployments and tests use it; multi-node deployments need RedisDedup so the
// keys are shared across runners.
type MemoryDedup struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{keys: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDedup) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expiry, ok := d.keys[key]; ok && now.Before(expiry) {
		return false, nil
	}
	d.keys[key] = now.Add(ttl)
	return true, nil
}

// RedisDedup implements reminder dedup on Redis SETNX with TTL, shared by all
// sweep runners.
type RedisDedup struct {
	client redis.Cmdable
	prefix string
}

func NewRedisDedup(client redis.Cmdable) *RedisDedup {
	return &RedisDedup{client: client, prefix: "heirloom:dedup:"}
}

func (d *RedisDedup) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, 1, ttl).Result()
}
