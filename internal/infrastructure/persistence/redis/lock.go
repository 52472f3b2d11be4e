package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RecordLocker is a streak.Locker shared by every bot process using the
// same Redis.
type RecordLocker struct {
	cache        *Cache
	ttl          time.Duration
	pollInterval time.Duration
}

var _ streak.Locker = (*RecordLocker)(nil)

// NewRecordLocker creates a locker. ttl bounds how long a crashed holder
// keeps the record locked.
func NewRecordLocker(cache *Cache, ttl time.Duration) *RecordLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RecordLocker{
		cache:        cache,
		ttl:          ttl,
		pollInterval: 20 * time.Millisecond,
	}
}

// Lock waits until the key is acquired or ctx is done.
func (l *RecordLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := LockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}

		ok, err := l.cache.SetNX(ctx, lockKey, token, l.ttl)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("acquire lock %s: %w", key, ctxErr)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(lockKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RecordLocker) unlockFunc(lockKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.cache.Client(), []string{lockKey}, token).Err()
	}
}
