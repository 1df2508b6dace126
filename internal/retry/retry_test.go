package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately and records requested waits.
type instantTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func TestDoSucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	timer := newInstantTimer()
	calls := 0
	var retried []int
	p := Policy{
		MaxAttempts: 15,
		Delay:       120 * time.Second,
		Timer:       timer,
		OnRetry:     func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
		Escalate:    func(*ExhaustedError) { t.Fatal("must not escalate") },
	}

	err := p.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Equal(t, []time.Duration{120 * time.Second, 120 * time.Second}, timer.waits)
}

func TestDoExhaustsAndEscalatesOnce(t *testing.T) {
	t.Parallel()

	timer := newInstantTimer()
	calls, escalations := 0, 0
	boom := errors.New("boom")
	p := Policy{
		MaxAttempts: 15,
		Delay:       120 * time.Second,
		Timer:       timer,
		Escalate: func(e *ExhaustedError) {
			escalations++
			assert.Equal(t, 15, e.Attempts)
		},
	}

	err := p.Do(func() error {
		calls++
		return boom
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 15, calls)
	assert.Equal(t, 1, escalations)
	assert.Len(t, timer.waits, 14)
}

func TestDoPermanentStopsEarly(t *testing.T) {
	t.Parallel()

	calls := 0
	boom := errors.New("bad request")
	p := Policy{
		MaxAttempts: 5,
		Timer:       newInstantTimer(),
		Escalate:    func(*ExhaustedError) { t.Fatal("must not escalate") },
	}
	err := p.Do(func() error {
		calls++
		return Permanent(boom)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoSingleImmediateRetry(t *testing.T) {
	t.Parallel()

	timer := newInstantTimer()
	calls := 0
	err := Policy{MaxAttempts: 2, Timer: timer}.Do(func() error {
		calls++
		return errors.New("503")
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{0}, timer.waits)
}
