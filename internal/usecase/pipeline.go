package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PaperPoster/internal/digest"
	"PaperPoster/internal/domain"
	"PaperPoster/internal/matcher"
	"PaperPoster/internal/metrics"
	"PaperPoster/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.BatchSource
	Cursors    ports.CursorStore
	Ledger     ports.PostedLedger
	Dispatcher *Dispatcher
	Rules      domain.Ruleset
	Favored    domain.FavoredAuthors
	// Recipients receive the email digest.
	Recipients []string
	AppName    string
	DryRun     bool
	// Concurrency bounds how many areas are fetched at once.
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Pipeline implements one poll, classify and dispatch cycle.
type Pipeline struct {
	source      ports.BatchSource
	cursors     ports.CursorStore
	ledger      ports.PostedLedger
	dispatcher  *Dispatcher
	rules       domain.Ruleset
	favored     domain.FavoredAuthors
	recipients  []string
	appName     string
	dryRun      bool
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:      deps.Source,
		cursors:     deps.Cursors,
		ledger:      deps.Ledger,
		dispatcher:  deps.Dispatcher,
		rules:       deps.Rules,
		favored:     deps.Favored,
		recipients:  deps.Recipients,
		appName:     deps.AppName,
		dryRun:      deps.DryRun,
		concurrency: deps.Concurrency,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

type areaOutcome struct {
	area      string
	result    matcher.Result
	unordered bool
	err       error
}

// RunCycle fetches and classifies every area, dispatches the merged result
// and stores cursors for the areas that succeeded. A failed area is reported
// to operators and skipped; the cycle still dispatches the rest and returns
// the joined area errors. A delivery that gives up aborts the cycle before
// any cursor is written.
func (p *Pipeline) RunCycle(ctx context.Context, areas []string) error {
	if p.source == nil || p.dispatcher == nil {
		return fmt.Errorf("pipeline is not configured")
	}
	started := time.Now()

	outcomes := p.collect(ctx, areas)

	var (
		errs   []error
		papers []*domain.Paper
		hits   = domain.AuthorHits{}
	)
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("area %s: %w", o.area, o.err))
			p.reportAreaFailure(ctx, o.area, o.err)
			continue
		}
		papers = append(papers, o.result.Papers...)
		hits.Merge(o.result.Authors)
	}

	matcher.Sort(papers)
	papers = digest.Dedupe(papers)
	p.debug("cycle classified", "areas", len(areas), "papers", len(papers))

	if err := p.dispatch(ctx, papers, hits); err != nil {
		p.metrics.CycleDone(started, false)
		return err
	}

	if !p.dryRun {
		errs = append(errs, p.storeCursors(ctx, outcomes)...)
	}

	err := errors.Join(errs...)
	p.metrics.CycleDone(started, err == nil)
	return err
}

func (p *Pipeline) collect(ctx context.Context, areas []string) []areaOutcome {
	outcomes := make([]areaOutcome, len(areas))
	if p.concurrency <= 1 {
		for i, area := range areas {
			outcomes[i] = p.processArea(ctx, area)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, area := range areas {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, area string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = p.processArea(ctx, area)
		}(i, area)
	}
	wg.Wait()
	return outcomes
}

func (p *Pipeline) processArea(ctx context.Context, area string) areaOutcome {
	out := areaOutcome{area: area}
	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	cursor := ""
	if p.cursors != nil {
		id, ok, err := p.cursors.Load(ctx, area)
		if err != nil {
			out.err = fmt.Errorf("load cursor: %w", err)
			return out
		}
		if ok {
			cursor = id
		}
	}

	batch, err := p.source.FetchArea(ctx, area, cursor)
	if err != nil {
		out.err = err
		return out
	}
	if batch.Area == "" {
		batch.Area = area
	}
	p.metrics.EntriesFetched(area, len(batch.Entries))

	if batch.Unordered {
		cursor = ""
		out.unordered = true
	}

	res, err := matcher.Classify(batch, p.rules.Rules, p.favored, cursor)
	if err != nil {
		out.err = err
		return out
	}
	p.metrics.PapersMatched(area, len(res.Papers))
	p.debug("area classified", "area", area, "entries", len(batch.Entries), "papers", len(res.Papers), "latest_id", res.LatestID)

	out.result = res
	return out
}

func (p *Pipeline) dispatch(ctx context.Context, papers []*domain.Paper, hits domain.AuthorHits) error {
	if err := p.loadPosted(ctx, papers); err != nil {
		return err
	}

	if err := p.dispatcher.Mail(ctx, p.recipients, digest.EmailBody(papers)); err != nil {
		return fmt.Errorf("email digest: %w", err)
	}

	for _, ch := range p.rules.Channels {
		eligible := digest.Eligible(ch.Name, ch.Min, papers)
		body := digest.ChannelBody(ch.Name, ch.Min, papers, hits, p.favored)
		if err := p.dispatcher.Deliver(ctx, ch.Name, body); err != nil {
			return fmt.Errorf("post channel %s: %w", ch.Name, err)
		}
		p.recordPosted(ctx, ch.Name, eligible)
	}
	return nil
}

// loadPosted restores posted flags from earlier cycles.
func (p *Pipeline) loadPosted(ctx context.Context, papers []*domain.Paper) error {
	if p.ledger == nil {
		return nil
	}
	for _, paper := range papers {
		for ch := range paper.Channels {
			posted, err := p.ledger.Posted(ctx, ch, paper.URL)
			if err != nil {
				return fmt.Errorf("load posted flags: %w", err)
			}
			if posted {
				paper.MarkPosted(ch)
			}
		}
	}
	return nil
}

func (p *Pipeline) recordPosted(ctx context.Context, channel string, papers []*domain.Paper) {
	if p.ledger == nil || p.dryRun {
		return
	}
	for _, paper := range papers {
		if err := p.ledger.MarkPosted(ctx, channel, paper.URL); err != nil {
			p.warn("record posted flag", "channel", channel, "url", paper.URL, "error", err)
		}
	}
}

func (p *Pipeline) storeCursors(ctx context.Context, outcomes []areaOutcome) []error {
	if p.cursors == nil {
		return nil
	}
	var errs []error
	for _, o := range outcomes {
		if o.err != nil || o.unordered || o.result.LatestID == "" {
			continue
		}
		if err := p.cursors.Store(ctx, o.area, o.result.LatestID); err != nil {
			errs = append(errs, fmt.Errorf("store cursor %s: %w", o.area, err))
			continue
		}
		p.debug("cursor stored", "area", o.area, "id", o.result.LatestID)
	}
	return errs
}

func (p *Pipeline) reportAreaFailure(ctx context.Context, area string, err error) {
	p.metrics.AreaFailed(area, errorKind(err))
	if p.logger != nil {
		p.logger.Error("area failed", "area", area, "error", err)
	}

	body := fmt.Sprintf("I failed on %s : %s\n\n", p.appName, area)
	var terr *domain.TransportError
	if errors.As(err, &terr) {
		body += terr.Report()
	} else {
		body += err.Error() + "\n"
	}
	_ = p.dispatcher.NotifyOperators(ctx, fmt.Sprintf("%s: %s failed", p.appName, area), body)
}

func errorKind(err error) string {
	var (
		terr *domain.TransportError
		perr *domain.ParseError
		ierr *domain.IntegrityError
		cerr *domain.ConfigError
	)
	switch {
	case errors.As(err, &terr):
		return "transport"
	case errors.As(err, &perr):
		return "parse"
	case errors.As(err, &ierr):
		return "integrity"
	case errors.As(err, &cerr):
		return "config"
	default:
		return "other"
	}
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
