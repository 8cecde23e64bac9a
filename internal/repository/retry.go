package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

// Retryer applies a uniform exponential-backoff policy beneath every store
// operation. Services above the repositories never retry themselves.
type Retryer struct {
	maxRetries uint64
	base       time.Duration
}

// NewRetryer constructs a Retryer. Non-positive arguments fall back to
// 3 retries with a 100ms base.
func NewRetryer(maxRetries int, base time.Duration) *Retryer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return &Retryer{maxRetries: uint64(maxRetries), base: base}
}

// Do runs op, retrying transient store failures with exponential backoff.
// A nil Retryer runs op exactly once.
func (rt *Retryer) Do(ctx context.Context, op func(context.Context) error) error {
	if rt == nil {
		return op(ctx)
	}

	backoff := retry.WithMaxRetries(rt.maxRetries, retry.NewExponential(rt.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		// insufficient resources, operator intervention, system error
		case "53", "57", "58":
			return true
		}
	}

	return false
}
