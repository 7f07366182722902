package vectorstore

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/hyperjump/promptrepo/internal/config"
)

// Backoff chooses how long to wait before retry number attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// NoBackoff retries immediately.
type NoBackoff struct{}

// Delay always returns zero.
func (NoBackoff) Delay(int) time.Duration { return 0 }

// JitterBackoff is exponential backoff with full jitter: the wait before retry
// n is uniform in [0, min(Max, Base*2^(n-1))].
type JitterBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns a randomised wait for attempt.
func (b JitterBackoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	ceiling := b.Base
	for i := 1; i < attempt && ceiling < b.Max; i++ {
		ceiling *= 2
	}
	if b.Max > 0 && ceiling > b.Max {
		ceiling = b.Max
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

// RetryPolicy bounds the optimistic write loop.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
}

// DefaultRetryPolicy makes three attempts with 50ms..1s jittered backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     JitterBackoff{Base: 50 * time.Millisecond, Max: time.Second},
	}
}

// RetryPolicyFromConfig builds a policy from the retry config section.
func RetryPolicyFromConfig(cfg *config.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg == nil {
		return p
	}
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	p.Backoff = JitterBackoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay}
	return p
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// wait sleeps for the backoff of attempt or until ctx is done.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	var d time.Duration
	if p.Backoff != nil {
		d = p.Backoff.Delay(attempt)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
