package engine

import (
	"context"
	"math"
	"time"

	"github.com/juju/errors"

	"migration-harness/internal/logger"
)

// RetryConfig defines how engine provisioning is retried.
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
}

// StartRetry returns the backoff used for engine provisioning with the
// given number of attempts.
func StartRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialDelay:      2 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// delay returns the wait before the given retry (1-based), with
// exponential backoff capped at MaxDelay.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// retry calls fn until it succeeds, the attempts are exhausted or ctx is
// done. The last error is returned.
func retry[T any](ctx context.Context, cfg RetryConfig, log *logger.Logger, step string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == attempts {
			break
		}
		wait := cfg.delay(attempt)
		log.WithError(err).Warnf("%s failed (attempt %d/%d), retrying in %v", step, attempt, attempts, wait)
		select {
		case <-ctx.Done():
			return zero, errors.Annotatef(ctx.Err(), "%s", step)
		case <-time.After(wait):
		}
	}
	return zero, errors.Annotatef(err, "%s failed after %d attempts", step, attempts)
}
