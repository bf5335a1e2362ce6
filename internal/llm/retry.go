package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// RetryPolicy is exponential backoff over transient errors only.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	// Sleep waits between attempts; nil uses a timer. Tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

// Delay is the wait after the given failed attempt (1-based): base * multiplier^(attempt-1), capped.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		d = p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, returns a non-transient error, or attempts run out.
// It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op func(ctx context.Context, attempt int) error) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !IsTransient(err) || attempt >= max {
			return attempt, err
		}
		delay := p.Delay(attempt)
		logger.Warn("llm.retry.backoff",
			"attempt", attempt,
			"max_attempts", max,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("retry aborted: %w (last error: %v)", serr, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
