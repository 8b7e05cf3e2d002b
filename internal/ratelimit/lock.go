package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// compare-and-delete so an expired lease cannot drop a newer holder's lock
const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

var (
	ErrLockHeld          = errors.New("lock_held")
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrInvalidLease      = errors.New("invalid_lease")
)

// Lease is a held member lock.
type Lease struct {
	Key   string
	Token string
}

type memberLocks struct {
	client  redis.Cmdable
	release *redis.Script
}

func newMemberLocks(client redis.Cmdable) *memberLocks {
	if client == nil {
		return nil
	}
	return &memberLocks{client: client, release: redis.NewScript(leaseReleaseScript)}
}

func (m *memberLocks) acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if m == nil || m.client == nil {
		return nil, ErrLockNotConfigured
	}
	if key == "" || ttl <= 0 {
		return nil, ErrInvalidLease
	}

	lease := &Lease{Key: key, Token: uuid.NewString()}
	ok, err := m.client.SetNX(ctx, lease.Key, lease.Token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lease, nil
}

func (m *memberLocks) drop(ctx context.Context, lease *Lease) error {
	if m == nil || m.client == nil || lease == nil || lease.Token == "" {
		return nil
	}
	return m.release.Run(ctx, m.client, []string{lease.Key}, lease.Token).Err()
}
