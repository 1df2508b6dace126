package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/ports"
)

// CronScheduler runs a job on a standard five-field cron expression.
type CronScheduler struct {
	spec string
	loc  *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, loc: loc}
}

// Validate checks the cron expression without starting anything.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return &domain.ConfigError{Err: fmt.Errorf("invalid schedule %q: %w", spec, err)}
	}
	return nil
}

// Next reports when the job fires next after t.
func (c *CronScheduler) Next(t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}, &domain.ConfigError{Err: fmt.Errorf("invalid schedule %q: %w", c.spec, err)}
	}
	return sched.Next(t.In(c.loc)), nil
}

// Start registers job and begins firing it. Overlapping runs are skipped;
// the scheduler stops when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(
		cron.WithLocation(c.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		return &domain.ConfigError{Err: fmt.Errorf("invalid schedule %q: %w", c.spec, err)}
	}
	cr.Start()
	c.cron = cr

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	done := cr.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
