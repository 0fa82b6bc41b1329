// Package retry provides the single backoff helper used for all external
// calls: bounded attempts, exponential delay, and jitter.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy parameterizes retry behavior.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultPolicy matches the retry posture used for platform and store calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    2 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.2,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Do runs op up to MaxAttempts times, sleeping between attempts. It stops
// early when ctx is canceled or when retryable reports the error as
// permanent. A nil retryable treats every error as retryable.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func() error) error {
	policy = policy.normalized()

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay, policy.JitterFactor)):
		}
		if next := delay * 2; next <= policy.MaxDelay {
			delay = next
		} else {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}

func withJitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return delay
	}
	scale := 1.0 + (rand.Float64()-0.5)*factor
	return time.Duration(float64(delay) * scale)
}
