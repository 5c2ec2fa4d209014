package tournament

import (
	"context"
	"time"
)

// RetryPolicy bounds how hard a critical transition write is retried
// before the transition is deferred.
type RetryPolicy struct {
	Attempts int           // tries per write, at least 1
	Delay    time.Duration // pause between tries
	Defer    time.Duration // how long to wait before re-running a failed transition
}

// DefaultRetry retries three times a quarter second apart and defers for 30s.
var DefaultRetry = RetryPolicy{Attempts: 3, Delay: 250 * time.Millisecond, Defer: 30 * time.Second}

// do runs fn until it succeeds, the attempts run out or ctx ends.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 || p.Delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return err
}
