package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledGuardAllowsEverything(t *testing.T) {
	var g *KioskGuard
	ctx := context.Background()

	decision, err := g.AllowDevice(ctx, "kiosk-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	lease, err := g.LockMember(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, lease)
	assert.NoError(t, g.UnlockMember(ctx, lease))
}

func TestNilClientMeansNoGuard(t *testing.T) {
	assert.Nil(t, NewKioskGuard(nil, config.Config{}))
	assert.Nil(t, newMemberLocks(nil))
	assert.Nil(t, newDeviceBucket(nil))
}

func TestUnconfiguredPrimitives(t *testing.T) {
	var locks *memberLocks
	_, err := locks.acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locks.drop(context.Background(), &Lease{Key: "k", Token: "t"}))

	var bucket *deviceBucket
	_, err = bucket.spend(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(2, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 0))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, retryAfter(0.5, 2))
	assert.Equal(t, time.Duration(0), retryAfter(1.2, 2))
	assert.Equal(t, time.Duration(0), retryAfter(0, 0))
}

func TestParseTokens(t *testing.T) {
	assert.Equal(t, 2.5, parseTokens("2.5"))
	assert.Equal(t, 4.0, parseTokens(int64(4)))
	assert.Equal(t, 0.0, parseTokens("x"))
	assert.Equal(t, 0.0, parseTokens(nil))
}
