package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"magaza-backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisThrottleConcurrentTriggers(t *testing.T) {
	_, client := newRedis(t)
	th := New(NewRedisLocker(client, "test:"), DefaultKey, 20*time.Second, nil)

	const n = 50
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Allow(context.Background()) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
}

func TestRedisThrottleReopensAfterTTL(t *testing.T) {
	mr, client := newRedis(t)
	th := New(NewRedisLocker(client, ""), DefaultKey, 10*time.Second, nil)
	ctx := context.Background()

	require.True(t, th.Allow(ctx))
	require.False(t, th.Allow(ctx))

	mr.FastForward(11 * time.Second)
	assert.True(t, th.Allow(ctx))
	assert.True(t, mr.Exists(DefaultKey))
}

func TestDBLockerWindow(t *testing.T) {
	db := testutil.NewDB(t)
	locker := NewDBLocker(db)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, DefaultKey, 20*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(5 * time.Second)
	ok, err = locker.Acquire(ctx, DefaultKey, 20*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = locker.Acquire(ctx, "other-key", 20*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, err = locker.Acquire(ctx, DefaultKey, 20*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDBThrottleConcurrentTriggers(t *testing.T) {
	db := testutil.NewDB(t)
	th := New(NewDBLocker(db), DefaultKey, time.Minute, nil)

	const n = 20
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Allow(context.Background()) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestThrottleLockErrorDenies(t *testing.T) {
	th := New(failingLocker{}, DefaultKey, time.Second, nil)
	assert.False(t, th.Allow(context.Background()))
	assert.Equal(t, time.Second, th.TTL())
}
