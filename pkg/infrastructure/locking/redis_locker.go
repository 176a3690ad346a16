package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotObtained is returned when another process holds the lot lock past the retry budget
var ErrLockNotObtained = errors.New("lot lock not obtained")

// RedisLocker holds per-lot locks in Redis so several processes can share one lot store
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	prefix string
	logger *zap.Logger
}

// NewRedisLocker wraps client. ttl bounds how long a crashed holder blocks the lot.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
		prefix: "lock:lot:",
		logger: logger,
	}
}

// Lock obtains the lot lock, retrying with linear backoff
func (r *RedisLocker) Lock(ctx context.Context, lotID string) (func(), error) {
	key := r.prefix + lotID
	lock, err := r.locker.Obtain(ctx, key, r.ttl, &redislock.Options{RetryStrategy: r.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("lot %s: %w", lotID, ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock for lot %s: %w", lotID, err)
	}

	return func() {
		// Release with a fresh context so a cancelled caller does not leak the lock until ttl.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.Warn("failed to release lot lock", zap.String("lot_id", lotID), zap.Error(err))
		}
	}, nil
}
