package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheFromClient(client), mr
}

func TestNewCache_ConnectsByURL(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewCache(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer cache.Close()

	assert.NoError(t, cache.Ping(context.Background()))
}

func TestCache_GetVersionedMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set("v:a", "2"))
	require.NoError(t, mr.Set("v:b", "3"))

	var v string
	version, err := cache.GetVersioned(context.Background(), "missing", []string{"v:a", "v:b", "v:none"}, &v)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, int64(5), version)
}

func TestScoreboardCache_RoundTripAndInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewScoreboardCache(cache, time.Minute)
	ctx := context.Background()

	standings := []streak.Standing{{Rank: 1, UserID: 7, DisplayName: "ana", MaxStreak: 3, Streak: 2, XP: 30}}
	require.NoError(t, sc.Set(ctx, 1, 10, 0, standings))
	require.NoError(t, sc.Set(ctx, 2, 10, 0, standings))

	got, _, found, err := sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, standings, got)

	require.NoError(t, sc.Invalidate(ctx, 1))
	_, _, found, err = sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, found, _ = sc.Get(ctx, 2, 10)
	assert.True(t, found)

	require.NoError(t, sc.InvalidateAll(ctx))
	_, _, found, _ = sc.Get(ctx, 2, 10)
	assert.False(t, found)
}

func TestScoreboardCache_SetAfterInvalidateIsDropped(t *testing.T) {
	cache, mr := newTestCache(t)
	sc := NewScoreboardCache(cache, time.Minute)
	ctx := context.Background()
	stale := []streak.Standing{{Rank: 1, UserID: 7, MaxStreak: 3}}

	_, generation, found, err := sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, sc.Invalidate(ctx, 1))
	require.NoError(t, sc.Set(ctx, 1, 10, generation, stale))
	assert.False(t, mr.Exists(ScoreboardKey(1, 10)))

	_, generation, _, err = sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, sc.InvalidateAll(ctx))
	require.NoError(t, sc.Set(ctx, 1, 10, generation, stale))
	assert.False(t, mr.Exists(ScoreboardKey(1, 10)))

	_, generation, _, err = sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), generation)
	require.NoError(t, sc.Set(ctx, 1, 10, generation, stale))

	got, _, found, err := sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stale, got)
}

func TestScoreboardCache_GenerationsArePerGuild(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewScoreboardCache(cache, time.Minute)
	ctx := context.Background()

	_, generation, _, err := sc.Get(ctx, 2, 10)
	require.NoError(t, err)

	require.NoError(t, sc.Invalidate(ctx, 1))
	require.NoError(t, sc.Set(ctx, 2, 10, generation, []streak.Standing{{Rank: 1, UserID: 9}}))

	_, _, found, err := sc.Get(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestScoreboardCache_Expires(t *testing.T) {
	cache, mr := newTestCache(t)
	sc := NewScoreboardCache(cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, sc.Set(ctx, 1, 10, 0, nil))
	got, _, found, err := sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)

	mr.FastForward(2 * time.Minute)

	_, _, found, err = sc.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordLocker_ExcludesSecondHolder(t *testing.T) {
	cache, _ := newTestCache(t)
	locker := NewRecordLocker(cache, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "900:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "900:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	unlock2, err := locker.Lock(context.Background(), "900:1")
	require.NoError(t, err)
	unlock2()
}

func TestRecordLocker_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	cache, mr := newTestCache(t)
	locker := NewRecordLocker(cache, time.Second)
	ctx := context.Background()

	staleUnlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	staleUnlock()
	assert.True(t, mr.Exists(LockKey("k")))

	unlock()
	assert.False(t, mr.Exists(LockKey("k")))
}

func TestRecordLocker_SerializesCounters(t *testing.T) {
	cache, _ := newTestCache(t)
	locker := NewRecordLocker(cache, 5*time.Second)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, counter)
}
