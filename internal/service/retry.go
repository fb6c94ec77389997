package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-transfer-service/internal/core/domain"
	"account-transfer-service/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 50 * time.Millisecond
)

// RetryPolicy bounds the optimistic retry loop. Attempts run strictly one
// after another; the wait before attempt n+1 is BaseDelay*n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns three attempts with a 50ms linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: defaultMaxAttempts, BaseDelay: defaultBaseDelay}
}

// Delay is the wait after the given 1-based attempt failed with a conflict.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// run drives Attempting -> {Committed, ConflictRetry -> Attempting, TerminalFailure}.
// Only errors matching domain.ErrConcurrencyConflict consume a retry; any
// other error is returned as-is. An exhausted budget yields TXN_001.
func (p RetryPolicy) run(ctx context.Context, log zerolog.Logger, op string, attempt func(n int) error) error {
	maxAttempts := p.attempts()

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		err := attempt(n)
		if err == nil {
			if n > 1 {
				log.Info().Str("op", op).Int("attempt", n).Msg("committed after retry")
			}
			return nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}

		lastErr = err
		if n == maxAttempts {
			break
		}

		delay := p.Delay(n)
		log.Debug().Err(err).Str("op", op).Int("attempt", n).Dur("backoff", delay).Msg("concurrency conflict, retrying")
		if err := sleepWithContext(ctx, delay); err != nil {
			return apperror.InternalError(fmt.Errorf("%s: backoff interrupted: %w", op, err))
		}
	}

	log.Warn().Err(lastErr).Str("op", op).Int("attempts", maxAttempts).Msg("retry budget exhausted")
	return apperror.ErrConcurrencyConflict(lastErr)
}

// sleepWithContext waits for d unless ctx ends first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
