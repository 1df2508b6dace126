package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"PaperPoster/internal/config"
	"PaperPoster/internal/domain"
	"PaperPoster/internal/infrastructure/mail"
	"PaperPoster/internal/infrastructure/parser"
	"PaperPoster/internal/infrastructure/scheduler"
	"PaperPoster/internal/infrastructure/storage"
	"PaperPoster/internal/infrastructure/webhook"
	"PaperPoster/internal/logging"
	"PaperPoster/internal/metrics"
	"PaperPoster/internal/ports"
	"PaperPoster/internal/query"
	"PaperPoster/internal/retry"
	"PaperPoster/internal/rules"
	"PaperPoster/internal/scanner"
	"PaperPoster/internal/usecase"
)

// Options carries the per-invocation inputs given on the command line.
type Options struct {
	RulesFile   string
	AuthorsFile string
	// AuthorsOptional tolerates a missing favored-author file.
	AuthorsOptional bool
	WebhookFile     string
	Recipients      []string
	Username        string
	IconEmoji       string
	Areas           []string
	QueryEmail      string
	DryRun          bool
	// Out receives bodies printed instead of delivered.
	Out io.Writer
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	areas    []string
	pipeline *usecase.Pipeline
	metrics  *metrics.Metrics
	logger   *slog.Logger
	closers  []io.Closer
}

// New loads every local input and builds the object graph. All input
// problems surface here as ConfigError, before any network activity.
func New(cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	if opts.QueryEmail != "" {
		cfg.Feed.QueryEmail = opts.QueryEmail
	}
	if cfg.Feed.QueryEmail == "" {
		return nil, &domain.ConfigError{Err: errors.New("query email is required")}
	}
	if len(opts.Areas) == 0 {
		return nil, &domain.ConfigError{Err: errors.New("no subject areas given")}
	}
	for _, area := range opts.Areas {
		_, known := cfg.Areas[area]
		_, bound := cfg.Source(area)
		if !known && !bound {
			return nil, &domain.ConfigError{Err: fmt.Errorf("unknown subject area %q", area)}
		}
	}

	ruleset, err := rules.LoadFile(opts.RulesFile)
	if err != nil {
		return nil, err
	}

	favored := domain.FavoredAuthors{}
	if opts.AuthorsFile != "" {
		loaded, err := rules.LoadAuthors(opts.AuthorsFile)
		switch {
		case err == nil:
			favored = loaded
		case opts.AuthorsOptional && errors.Is(err, os.ErrNotExist):
			baseLogger.Debug("no favored-author file", "path", opts.AuthorsFile)
		default:
			return nil, err
		}
	}

	webhookURL, err := resolveWebhook(cfg, opts)
	if err != nil {
		return nil, err
	}

	operators := append([]string(nil), cfg.Notifications.Operators...)
	if cfg.Notifications.OperatorsFile != "" {
		extra, err := rules.LoadAddresses(cfg.Notifications.OperatorsFile)
		if err != nil {
			return nil, err
		}
		operators = append(operators, extra...)
	}

	recipients := opts.Recipients
	if len(recipients) == 0 {
		recipients = cfg.Notifications.Recipients
	}

	dryRun := opts.DryRun || cfg.App.DryRun
	application := &Application{
		cfg:     cfg,
		areas:   opts.Areas,
		metrics: metrics.New(),
		logger:  baseLogger,
	}

	cursors, ledger, err := application.openStorage(cfg, filepath.Dir(opts.RulesFile))
	if err != nil {
		return nil, err
	}

	builder := query.NewBuilder()
	builder.BaseURL = cfg.Feed.BaseURL
	builder.Areas = cfg.Areas

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivFeed(parser.ArxivOptions{
		Client:     &http.Client{Timeout: cfg.Feed.Timeout},
		Builder:    builder,
		AppName:    cfg.App.Name,
		QueryEmail: cfg.Feed.QueryEmail,
		MaxResults: cfg.Feed.MaxResults,
		Window:     cfg.Feed.Window,
		Retry:      retry.Policy{MaxAttempts: cfg.Feed.Attempts},
		Logger:     baseLogger.With("component", "scanner.arxiv"),
	}))
	registry.Register(parser.NewEventsScanner(
		&http.Client{Timeout: cfg.Feed.Timeout},
		parser.UserAgent(cfg.App.Name, cfg.Feed.QueryEmail),
		baseLogger.With("component", "scanner.events"),
	))

	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	var notifier ports.Notifier
	if webhookURL != "" {
		notifier = webhook.NewNotifier(webhookURL, nil)
	}

	username := opts.Username
	if username == "" {
		username = cfg.Delivery.Username
	}
	iconEmoji := opts.IconEmoji
	if iconEmoji == "" {
		iconEmoji = cfg.Delivery.IconEmoji
	}

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Notifier:  notifier,
		Mailer:    mail.NewSMTPMailer(cfg.Notifications.SMTP.Addr, mail.DefaultFrom(cfg.App.Name)),
		Operators: operators,
		From:      mail.DefaultFrom(cfg.App.Name),
		Username:  username,
		IconEmoji: iconEmoji,
		Retry:     retry.Policy{MaxAttempts: cfg.Delivery.Attempts, Delay: cfg.Delivery.Delay},
		DryRun:    dryRun,
		Out:       opts.Out,
		Logger:    baseLogger.With("component", "dispatcher"),
		Metrics:   application.metrics,
	})

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Cursors:     cursors,
		Ledger:      ledger,
		Dispatcher:  dispatcher,
		Rules:       ruleset,
		Favored:     favored,
		Recipients:  recipients,
		AppName:     cfg.App.Name,
		DryRun:      dryRun,
		Concurrency: cfg.Feed.Concurrency,
		Logger:      baseLogger.With("component", "pipeline"),
		Metrics:     application.metrics,
	})

	return application, nil
}

func resolveWebhook(cfg config.Config, opts Options) (string, error) {
	switch {
	case opts.WebhookFile != "":
		return rules.LoadWebhook(opts.WebhookFile)
	case cfg.Notifications.WebhookFile != "":
		return rules.LoadWebhook(cfg.Notifications.WebhookFile)
	default:
		return cfg.Notifications.WebhookURL, nil
	}
}

// openStorage picks the cursor store and posted ledger. Cursor files default
// to the rules file directory.
func (a *Application) openStorage(cfg config.Config, rulesDir string) (ports.CursorStore, ports.PostedLedger, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.Storage.Path
		if path == "" {
			path = filepath.Join(rulesDir, "paperposter.db")
		}
		store, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, nil, &domain.ConfigError{Path: path, Err: err}
		}
		a.closers = append(a.closers, store)
		return store, store, nil
	default:
		dir := cfg.Storage.Path
		if dir == "" {
			dir = rulesDir
		}
		return storage.NewFileCursorStore(dir), storage.NewMemoryLedger(), nil
	}
}

// Run performs a single cycle over the configured areas.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}
	return a.pipeline.RunCycle(ctx, a.areas)
}

// Schedule runs cycles on the configured cron expression and serves
// /metrics until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := scheduler.Validate(a.cfg.Scheduler.CronExpression); err != nil {
		return err
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	jobs := usecase.NewScheduler(driver, a.pipeline, a.areas, a.logger.With("component", "scheduler"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	if err := jobs.Start(ctx); err != nil {
		return err
	}
	if next, err := driver.Next(time.Now()); err == nil {
		a.logger.Info("scheduler started", "schedule", a.cfg.Scheduler.CronExpression, "next", next, "areas", a.areas)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		err = fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if stopErr := jobs.Stop(shutdownCtx); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// Close releases storage handles.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
