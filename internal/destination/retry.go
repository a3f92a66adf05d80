package destination

import (
	"context"
	"time"
)

// withRetry runs fn up to attempts times, sleeping 1s, 2s, 4s, ...
// between failures (doubling from base). It returns the last error if
// every attempt fails, or nil on the first success.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	delay := base

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
