package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PostSlugKeyPrefix = "post:slug:%s"
	PostVersionPrefix = "post:version:%s"
	UserKeyPrefix     = "user:%s"
	LikeLockKeyPrefix = "lock:like:%s:%s"
	CategoriesKey     = "categories:summary"
)

const (
	PostTTL       = 60 * time.Second
	UserTTL       = 5 * time.Minute
	CategoriesTTL = 10 * time.Minute
	LikeLockTTL   = 5 * time.Second
	// outlives any in-flight fill so a bumped version is still seen
	PostVersionTTL = 10 * time.Minute
)

func PostSlugKey(slug string) string {
	return fmt.Sprintf(PostSlugKeyPrefix, slug)
}

func PostVersionKey(slug string) string {
	return fmt.Sprintf(PostVersionPrefix, slug)
}

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func LikeLockKey(postID, userID string) string {
	return fmt.Sprintf(LikeLockKeyPrefix, postID, userID)
}

// Invalidate removes keys from the cache. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidatePost drops the cached detail of a post and the category summary
// that counts it. The post's version is bumped before the delete so a fill
// already in flight does not store what it read.
func InvalidatePost(ctx context.Context, slug string) {
	if client == nil {
		return
	}
	version := PostVersionKey(slug)
	_, _ = client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, version)
		p.Expire(ctx, version, PostVersionTTL)
		p.Del(ctx, PostSlugKey(slug), CategoriesKey)
		return nil
	})
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}
