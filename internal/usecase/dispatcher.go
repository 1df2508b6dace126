package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/metrics"
	"PaperPoster/internal/ports"
	"PaperPoster/internal/retry"
)

const (
	// DigestSubject is used for the keyword-grouped email digest.
	DigestSubject = "arXiv papers of interest"
	// EscalationSubject is used when a delivery gave up.
	EscalationSubject = ":'("

	escalationLead = "Broken, I am. Save me, you must.\n\n"
)

// DispatcherDeps wires outbound adapters into the dispatcher.
type DispatcherDeps struct {
	Notifier  ports.Notifier
	Mailer    ports.Mailer
	Operators []string
	From      string
	Username  string
	IconEmoji string
	Retry     retry.Policy
	DryRun    bool
	// Out receives bodies that are printed instead of delivered.
	Out     io.Writer
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Dispatcher delivers rendered bodies under the retry policy and escalates
// to operators when a delivery gives up.
type Dispatcher struct {
	notifier  ports.Notifier
	mailer    ports.Mailer
	operators []string
	from      string
	username  string
	iconEmoji string
	retry     retry.Policy
	dryRun    bool
	out       io.Writer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher constructs the delivery component.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	return &Dispatcher{
		notifier:  deps.Notifier,
		mailer:    deps.Mailer,
		operators: deps.Operators,
		from:      deps.From,
		username:  deps.Username,
		iconEmoji: deps.IconEmoji,
		retry:     deps.Retry,
		dryRun:    deps.DryRun,
		out:       out,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Deliver posts body to channel. Empty bodies are skipped. Without a
// notifier, or in dry-run, the body is printed instead.
func (d *Dispatcher) Deliver(ctx context.Context, channel, body string) error {
	if body == "" {
		d.debug("nothing to post", "channel", channel)
		return nil
	}
	if d.dryRun || d.notifier == nil {
		fmt.Fprintf(d.out, "channel: %s\n%s\n", channel, body)
		return nil
	}

	msg := domain.Message{
		Channel:   channel,
		Username:  d.username,
		IconEmoji: d.iconEmoji,
		Text:      body,
	}
	return d.withRetry(ctx, channel, func() error {
		return d.notifier.Post(ctx, msg)
	})
}

// Mail sends the digest body to every recipient, one message each.
func (d *Dispatcher) Mail(ctx context.Context, recipients []string, body string) error {
	if body == "" || len(recipients) == 0 {
		return nil
	}
	if d.dryRun || d.mailer == nil {
		fmt.Fprintln(d.out, body)
		return nil
	}

	for _, to := range recipients {
		mail := domain.Mail{From: d.from, To: to, Subject: DigestSubject, Body: body}
		err := d.withRetry(ctx, "mail:"+to, func() error {
			return d.mailer.Send(ctx, mail)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyOperators mails body to every operator once, without retries.
// Failures are logged and joined.
func (d *Dispatcher) NotifyOperators(ctx context.Context, subject, body string) error {
	if d.dryRun || d.mailer == nil || len(d.operators) == 0 {
		d.warn("operator notification not sent", "subject", subject, "body", body)
		return nil
	}

	var errs []error
	for _, to := range d.operators {
		err := d.mailer.Send(ctx, domain.Mail{From: d.from, To: to, Subject: subject, Body: body})
		if err != nil {
			d.warn("operator mail failed", "to", to, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) withRetry(ctx context.Context, target string, op func() error) error {
	policy := d.retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		d.metrics.Retried(target)
		d.warn("delivery failed, retrying", "target", target, "attempt", attempt, "wait", wait, "error", err)
	}
	policy.Escalate = func(exhausted *retry.ExhaustedError) {
		body := fmt.Sprintf("%sdelivery to %s failed %d times\n\n%v\n", escalationLead, target, exhausted.Attempts, exhausted.Err)
		// The cycle may be cancelled by now; the report must still go out.
		_ = d.NotifyOperators(context.WithoutCancel(ctx), EscalationSubject, body)
	}

	err := policy.Do(op)
	if err == nil {
		d.metrics.Delivered(target, "ok")
		return nil
	}
	d.metrics.Delivered(target, "failed")

	attempts := 1
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		attempts = exhausted.Attempts
		err = exhausted.Err
	}
	return &domain.DeliveryError{Channel: target, Attempts: attempts, Err: err}
}

func (d *Dispatcher) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
