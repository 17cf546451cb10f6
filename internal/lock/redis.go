package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a lease lock shared by every replica using the same Redis.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedis builds a Redis-backed locker. ttl bounds how long a crashed holder
// can block others; wait bounds how long Acquire polls.
func NewRedis(client *redis.Client, prefix string, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
		logger: logger,
	}
}

// Acquire polls SET NX until the lease is taken, wait elapses or ctx ends.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	if r.client == nil {
		return nil, errors.New("redis lock: client not configured")
	}
	fullKey := r.prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(waitCtx, fullKey, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, errors.Join(ErrNotAcquired, waitCtx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		// Release must run even when the request context is already gone.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err(); err != nil {
			r.logger.Warn("release ticket lock", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}
