// Package retry runs operations under a fixed-delay, bounded-attempt policy.
package retry

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries an operation up to MaxAttempts times, waiting Delay between
// attempts. It cannot be cancelled once started: the attempt count and delay
// are the only ceiling.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Timer replaces the wall clock between attempts. Nil uses real time.
	Timer backoff.Timer
	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
	// Escalate is called once when every attempt failed.
	Escalate func(err *ExhaustedError)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, or the attempts
// run out.
func (p Policy) Do(op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))

	n := 0
	counted := func() error {
		n++
		return op()
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(n, err, wait)
		}
	}

	err := backoff.RetryNotifyWithTimer(counted, b, notify, p.Timer)
	if err == nil {
		return nil
	}
	if n < attempts {
		// Permanent errors stop early and are returned unwrapped.
		return err
	}

	exhausted := &ExhaustedError{Attempts: n, Err: err}
	if p.Escalate != nil {
		p.Escalate(exhausted)
	}
	return exhausted
}
