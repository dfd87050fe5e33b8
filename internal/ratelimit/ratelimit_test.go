package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pulseboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockerExclusiveUntilRelease(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	l := NewLocker(client)

	token, ok, err := l.TryLock(ctx, "forecast:user-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "forecast:user-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "forecast:user-a", "someone-else"))
	_, ok, _ = l.TryLock(ctx, "forecast:user-a", time.Minute)
	assert.False(t, ok, "a foreign token must not release the lock")

	require.NoError(t, l.Release(ctx, "forecast:user-a", token))
	_, ok, err = l.TryLock(ctx, "forecast:user-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	l := NewLocker(client)

	_, ok, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilLocker(t *testing.T) {
	var l *Locker
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
	assert.Nil(t, NewLocker(nil))
}

func TestTokenBucketExhausts(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	b := NewTokenBucket(client)

	for i := 0; i < 3; i++ {
		res, err := b.Allow(ctx, "bucket", 0.001, 3)
		require.NoError(t, err)
		require.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := b.Allow(ctx, "bucket", 0.001, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Positive(t, res.RetryAfter)
}

func TestTokenBucketValidation(t *testing.T) {
	_, client := newTestClient(t)
	b := NewTokenBucket(client)

	_, err := b.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = b.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestDelegatedQuotaPerUser(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	cfg := config.Config{Quota: config.QuotaConfig{Enabled: true, Rate: 0.001, Burst: 1}}

	q, err := NewDelegatedQuota(cfg, client)
	require.NoError(t, err)
	require.NotNil(t, q)

	ok, err := q.Allow(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.Allow(ctx, "user-a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = q.Allow(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, ok, "quota is tracked per user")
}

func TestDelegatedQuotaDisabled(t *testing.T) {
	q, err := NewDelegatedQuota(config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	ok, err := q.Allow(context.Background(), "user-a")
	require.NoError(t, err)
	assert.True(t, ok)
}
