package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "heirloom:sweep:lease"

// releaseScript deletes the lease only when this holder still owns it, so a
// slow sweep that outlives its TTL cannot release a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSweepLock is a best-effort lease on Redis SETNX. It serializes sweep
// runs across processes; per-record version checks remain the correctness
// guarantee if the lease ever fails open.
type RedisSweepLock struct {
	client redis.Cmdable
	holder string
}

func NewRedisSweepLock(client redis.Cmdable) *RedisSweepLock {
	return &RedisSweepLock{client: client, holder: uuid.NewString()}
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKey, l.holder, ttl).Result()
}

func (l *RedisSweepLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{sweepLockKey}, l.holder).Err()
}
