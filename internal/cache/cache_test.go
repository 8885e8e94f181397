package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (cachedThing, error) {
		calls++
		return cachedThing{Name: "first", Count: calls}, nil
	}

	got, err := Aside(ctx, "thing:1", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, cachedThing{Name: "first", Count: 1}, got)
	assert.True(t, mr.Exists("thing:1"))

	got, err = Aside(ctx, "thing:1", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 1, calls)

	Invalidate(ctx, "thing:1")
	got, err = Aside(ctx, "thing:1", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)

	boom := errors.New("boom")
	_, err := Aside(context.Background(), "thing:err", time.Minute, func(context.Context) (cachedThing, error) {
		return cachedThing{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("thing:err"))
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Aside(context.Background(), "thing:none", time.Minute, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestAsideVersioned_StoresWhenVersionUnchanged(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	got, err := AsideVersioned(ctx, PostSlugKey("calm"), PostVersionKey("calm"), time.Minute, func(context.Context) (cachedThing, error) {
		return cachedThing{Name: "calm"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "calm", got.Name)
	assert.True(t, mr.Exists(PostSlugKey("calm")))
	assert.Equal(t, time.Minute, mr.TTL(PostSlugKey("calm")))
}

func TestAsideVersioned_InvalidationDuringFetchWins(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	for _, bumps := range []int{1, 2} {
		slug := fmt.Sprintf("busy-%d", bumps)
		got, err := AsideVersioned(ctx, PostSlugKey(slug), PostVersionKey(slug), time.Minute, func(ctx context.Context) (cachedThing, error) {
			for i := 0; i < bumps; i++ {
				InvalidatePost(ctx, slug)
			}
			return cachedThing{Name: "stale"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "stale", got.Name, "the caller still gets what it read")
		assert.False(t, mr.Exists(PostSlugKey(slug)), "stale value must not be stored")
		assert.True(t, mr.Exists(PostVersionKey(slug)))
	}

	// the next fill sees a stable version and is stored
	_, err := AsideVersioned(ctx, PostSlugKey("busy-1"), PostVersionKey("busy-1"), time.Minute, func(context.Context) (cachedThing, error) {
		return cachedThing{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists(PostSlugKey("busy-1")))
}

func TestInvalidatePost_BumpsVersionWithTTL(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(PostSlugKey("p"), "{}"))
	require.NoError(t, mr.Set(CategoriesKey, "[]"))

	InvalidatePost(ctx, "p")
	InvalidatePost(ctx, "p")

	assert.False(t, mr.Exists(PostSlugKey("p")))
	assert.False(t, mr.Exists(CategoriesKey))
	v, err := mr.Get(PostVersionKey("p"))
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	assert.Equal(t, PostVersionTTL, mr.TTL(PostVersionKey("p")))
}

func TestWaitLock_WaitsForRelease(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	key := LikeLockKey("post-4", "user-4")
	require.NoError(t, mr.Set(key, "other"))

	go func() {
		time.Sleep(50 * time.Millisecond)
		mr.Del(key)
	}()

	release, err := WaitLock(ctx, key, time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	release()
	assert.False(t, mr.Exists(key))
}

func TestWaitLock_GivesUp(t *testing.T) {
	mr := useMiniredis(t)
	key := LikeLockKey("post-5", "user-5")
	require.NoError(t, mr.Set(key, "other"))

	_, err := WaitLock(context.Background(), key, time.Second, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockHeld)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WaitLock(ctx, key, time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireLock_Exclusive(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	key := LikeLockKey("post-1", "user-1")

	release, err := AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)

	_, err = AcquireLock(ctx, key, time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	assert.False(t, mr.Exists(key))

	release2, err := AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)
	release2()
}

func TestAcquireLock_ReleaseDoesNotStealNewOwner(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	key := LikeLockKey("post-2", "user-2")

	release, err := AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)

	// first holder's lease expires and a second holder takes over
	mr.FastForward(2 * time.Second)
	_, err = AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists(key), "stale release must not remove the new owner's lock")
}

func TestAcquireLock_ConcurrentContenders(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()
	key := LikeLockKey("post-3", "user-3")

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := AcquireLock(ctx, key, time.Minute); err == nil {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), acquired.Load())
}

func TestAcquireLock_WithoutRedis(t *testing.T) {
	SetClient(nil)
	release, err := AcquireLock(context.Background(), "any", time.Second)
	require.NoError(t, err)
	release()
}
