package redis

import (
	"context"
	"errors"
	"time"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed bool
	Count   int64
	// ResetIn is the time left in the current window.
	ResetIn time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, scope string, limit int64, window time.Duration) (Decision, error)
}

// Allow counts a hit against scope in a fixed window aligned to the epoch.
// Each window gets its own key, so a counter that somehow lost its TTL only
// affects the window it belongs to.
func (c *Client) Allow(ctx context.Context, scope string, limit int64, window time.Duration) (Decision, error) {
	if err := c.ready(); err != nil {
		return Decision{}, err
	}
	if window <= 0 {
		return Decision{}, errors.New("rate limit window must be positive")
	}

	now := c.now().UnixNano()
	bucket := now / int64(window)
	resetIn := time.Duration(int64(window) - now%int64(window))
	key := c.RateLimitKey(scope, bucket)

	count, err := c.cmd.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		// Outlive the window slightly so late hits in the same bucket still count.
		if err := c.cmd.Expire(ctx, key, resetIn+time.Second).Err(); err != nil {
			return Decision{}, err
		}
	}
	return Decision{Allowed: count <= limit, Count: count, ResetIn: resetIn}, nil
}
