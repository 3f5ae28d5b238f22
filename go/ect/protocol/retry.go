// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package protocol

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// RetryPolicy defines how often and at which pace an operation is retried.
// The delay before retry i (starting at 0) is Delay * Multiplier^i, capped
// by MaxDelay if set.
type RetryPolicy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// DefaultValidationRetry is the genesis synchronization policy of the
// validation mode: few attempts with a growing delay.
var DefaultValidationRetry = RetryPolicy{
	Attempts:   5,
	Delay:      500 * time.Millisecond,
	Multiplier: 2,
	MaxDelay:   8 * time.Second,
}

// DefaultProductionRetry is the genesis synchronization policy of the
// production mode: many attempts with a fixed delay.
var DefaultProductionRetry = RetryPolicy{
	Attempts:   30,
	Delay:      time.Second,
	Multiplier: 1,
}

// DefaultRetryPolicy returns the default genesis synchronization policy of
// the given mode.
func DefaultRetryPolicy(mode Mode) RetryPolicy {
	if mode == Production {
		return DefaultProductionRetry
	}
	return DefaultValidationRetry
}

// MaxAttempts returns the number of attempts, which is at least one.
func (p RetryPolicy) MaxAttempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// DelayFor returns the delay to wait after the given failed attempt.
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	delay := float64(p.Delay)
	for i := 0; i < attempt && p.Multiplier > 1; i++ {
		delay *= p.Multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// sleep waits for the given duration on the clock or until the context is
// done, whichever comes first.
func sleep(ctx context.Context, clk clock.Clock, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.TickAfter(duration):
		return nil
	}
}
