package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"blogspace/internal/middleware"
	"blogspace/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var fetchGroup singleflight.Group

// setIfVersion stores KEYS[1] only while the version in KEYS[2] still equals
// ARGV[1]. A missing version reads as "".
var setIfVersion = redis.NewScript(`
local cur = redis.call("GET", KEYS[2])
if cur == false then cur = "" end
if cur ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1`)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside returns the cached value for key, or calls fetch on a miss and stores
// its result for ttl. Concurrent misses on one key share a single fetch.
// Cache failures are logged and fall through to fetch.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := GetJSON(ctx, key, &cached)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := fetchGroup.Do(key, func() (any, error) {
		fresh, err := fetch(ctx)
		if err != nil {
			return fresh, err
		}
		if err := SetJSON(ctx, key, fresh, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// AsideVersioned is Aside for entries that are invalidated by bumping
// versionKey. The fetched value is stored only when the version is unchanged
// since before the fetch, so an invalidation that lands mid-fetch is not
// overwritten by the stale result.
func AsideVersioned[T any](ctx context.Context, key, versionKey string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := GetJSON(ctx, key, &cached)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := fetchGroup.Do(key, func() (any, error) {
		version, verr := readVersion(ctx, versionKey)
		fresh, err := fetch(ctx)
		if err != nil {
			return fresh, err
		}
		if verr != nil {
			middleware.Logger.WarnContext(ctx, "cache version read failed", slog.String("key", versionKey), slog.String("error", verr.Error()))
			return fresh, nil
		}
		if err := setVersioned(ctx, key, versionKey, version, fresh, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func readVersion(ctx context.Context, versionKey string) (string, error) {
	if client == nil {
		return "", nil
	}
	v, err := client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func setVersioned(ctx context.Context, key, versionKey, version string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return setIfVersion.Run(ctx, client, []string{key, versionKey}, version, b, ttl.Milliseconds()).Err()
}
