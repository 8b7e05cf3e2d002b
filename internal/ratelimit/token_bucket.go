package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// deviceBucketScript refills a kiosk device's bucket from the Redis clock and
// spends one token when available. Tokens come back as a string so the
// fractional part survives the Lua to Redis reply conversion.
const deviceBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now

local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens)}
`

var (
	ErrBucketNotConfigured = errors.New("device_bucket_not_configured")
	ErrInvalidBucket       = errors.New("invalid_device_bucket")
)

// Decision is the outcome of spending one kiosk request token.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type deviceBucket struct {
	client redis.Cmdable
	script *redis.Script
}

func newDeviceBucket(client redis.Cmdable) *deviceBucket {
	if client == nil {
		return nil
	}
	return &deviceBucket{client: client, script: redis.NewScript(deviceBucketScript)}
}

func (b *deviceBucket) spend(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, ErrBucketNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return Decision{}, ErrInvalidBucket
	}

	reply, err := b.script.Run(ctx, b.client, []string{key},
		rate, burst, bucketTTL(rate, burst).Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 2 {
		return Decision{}, ErrInvalidBucket
	}

	allowed, _ := reply[0].(int64)
	tokens := parseTokens(reply[1])
	decision := Decision{
		Allowed:   allowed == 1,
		Limit:     burst,
		Remaining: int(tokens),
	}
	if !decision.Allowed {
		decision.RetryAfter = retryAfter(tokens, rate)
	}
	return decision, nil
}

// bucketTTL keeps an idle bucket around for twice its full refill time.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(2*float64(burst)/rate))
	return time.Duration(seconds) * time.Second
}

func retryAfter(tokens, rate float64) time.Duration {
	missing := 1 - tokens
	if missing <= 0 || rate <= 0 {
		return 0
	}
	return time.Duration(missing / rate * float64(time.Second))
}

func parseTokens(v any) float64 {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(val)
	default:
		return 0
	}
}
