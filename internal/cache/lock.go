package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another request")

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// AcquireLock takes a short-lived exclusive lock on key. The returned release
// function is always safe to call. Without Redis the lock is a no-op and the
// caller relies on database constraints alone.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if client == nil {
		return func() {}, nil
	}

	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, err
	}
	if !ok {
		return func() {}, ErrLockHeld
	}

	return func() {
		// release even if the request context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, client, []string{key}, token).Err()
	}, nil
}

// WaitLock retries AcquireLock with backoff until the lock is free or wait
// has elapsed. It returns ErrLockHeld when wait runs out and the context's
// error when ctx is done first.
func WaitLock(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond
	for {
		release, err := AcquireLock(ctx, key, ttl)
		if !errors.Is(err, ErrLockHeld) {
			return release, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return release, err
		}

		timer := time.NewTimer(min(backoff, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return func() {}, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}
}
