package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/query"
)

const (
	defaultTimezone = "UTC"
	// DefaultSchedule wakes the poller Sunday through Thursday at 20:00.
	DefaultSchedule = "0 20 * * 0-4"

	configPathEnv  = "PAPERPOSTER_CONFIG"
	queryEmailEnv  = "PAPERPOSTER_QUERY_EMAIL"
	webhookURLEnv  = "PAPERPOSTER_WEBHOOK_URL"
	smtpAddrEnv    = "PAPERPOSTER_SMTP_ADDR"
	operatorsEnv   = "PAPERPOSTER_OPERATORS"
	storageEnv     = "PAPERPOSTER_STORAGE_BACKEND"
	storagePathEnv = "PAPERPOSTER_STORAGE_PATH"
	scheduleEnv    = "PAPERPOSTER_SCHEDULE"
	logLevelEnv    = "PAPERPOSTER_LOG_LEVEL"
	logFormatEnv   = "PAPERPOSTER_LOG_FORMAT"
	metricsAddrEnv = "PAPERPOSTER_METRICS_ADDR"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	App           AppConfig             `yaml:"app" toml:"app"`
	Feed          FeedConfig            `yaml:"feed" toml:"feed"`
	Areas         map[string]query.Area `yaml:"areas" toml:"areas"`
	Sources       []SourceConfig        `yaml:"sources" toml:"sources"`
	Delivery      DeliveryConfig        `yaml:"delivery" toml:"delivery"`
	Notifications NotificationConfig    `yaml:"notifications" toml:"notifications"`
	Storage       StorageConfig         `yaml:"storage" toml:"storage"`
	Scheduler     SchedulerConfig       `yaml:"scheduler" toml:"scheduler"`
	Metrics       MetricsConfig         `yaml:"metrics" toml:"metrics"`
	Logging       LoggingConfig         `yaml:"logging" toml:"logging"`
}

// AppConfig names the poller in the User-Agent and in the mail sender.
type AppConfig struct {
	Name   string `yaml:"name" toml:"name"`
	DryRun bool   `yaml:"dryRun" toml:"dryRun"`
}

// FeedConfig controls how the arXiv API is queried.
type FeedConfig struct {
	BaseURL     string        `yaml:"baseUrl" toml:"baseUrl"`
	QueryEmail  string        `yaml:"queryEmail" toml:"queryEmail"`
	Window      time.Duration `yaml:"window" toml:"window"`
	MaxResults  int           `yaml:"maxResults" toml:"maxResults"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	Attempts    int           `yaml:"attempts" toml:"attempts"`
	Concurrency int           `yaml:"concurrency" toml:"concurrency"`
}

// SourceConfig binds a subject area to a non-default scanner, e.g. an
// event listing page.
type SourceConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Scanner string `yaml:"scanner" toml:"scanner"`
	URL     string `yaml:"url" toml:"url"`
}

// DeliveryConfig sets the webhook identity and the retry ceiling.
type DeliveryConfig struct {
	Username  string        `yaml:"username" toml:"username"`
	IconEmoji string        `yaml:"iconEmoji" toml:"iconEmoji"`
	Attempts  int           `yaml:"attempts" toml:"attempts"`
	Delay     time.Duration `yaml:"delay" toml:"delay"`
}

// NotificationConfig encapsulates outbound channels (webhook, mail).
type NotificationConfig struct {
	WebhookURL    string     `yaml:"webhookUrl" toml:"webhookUrl"`
	WebhookFile   string     `yaml:"webhookFile" toml:"webhookFile"`
	Recipients    []string   `yaml:"recipients" toml:"recipients"`
	Operators     []string   `yaml:"operators" toml:"operators"`
	OperatorsFile string     `yaml:"operatorsFile" toml:"operatorsFile"`
	SMTP          SMTPConfig `yaml:"smtp" toml:"smtp"`
}

// SMTPConfig points at the mail relay.
type SMTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// StorageConfig chooses where cursors and the posted ledger live.
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// Path is the sqlite database file, or the cursor directory for the
	// file backend. Empty means the rules file directory.
	Path string `yaml:"path" toml:"path"`
}

// SchedulerConfig defines when the poller should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" toml:"cronExpression"`
	Timezone       string         `yaml:"timezone" toml:"timezone"`
	location       *time.Location `yaml:"-" toml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MetricsConfig exposes prometheus metrics in schedule mode.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Path returns the config file named by the environment, if any.
func Path() string {
	return os.Getenv(configPathEnv)
}

// Load starts from defaults, merges the file at path (YAML, or TOML by
// extension) and applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &domain.ConfigError{Path: path, Err: err}
	}

	var fileCfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &fileCfg)
	default:
		err = yaml.Unmarshal(raw, &fileCfg)
	}
	if err != nil {
		return Config{}, &domain.ConfigError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	return fileCfg, nil
}

// Validate rejects settings no cycle can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return &domain.ConfigError{Err: fmt.Errorf("unknown storage backend %q", c.Storage.Backend)}
	}
	if c.Feed.MaxResults < 1 {
		return &domain.ConfigError{Err: fmt.Errorf("feed.maxResults must be positive, got %d", c.Feed.MaxResults)}
	}
	for _, src := range c.Sources {
		if src.Name == "" || src.Scanner == "" {
			return &domain.ConfigError{Err: fmt.Errorf("source needs name and scanner: %+v", src)}
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(queryEmailEnv); v != "" {
		c.Feed.QueryEmail = v
	}
	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Notifications.WebhookURL = v
	}
	if v := os.Getenv(smtpAddrEnv); v != "" {
		c.Notifications.SMTP.Addr = v
	}
	if v := os.Getenv(operatorsEnv); v != "" {
		c.Notifications.Operators = splitList(v)
	}
	if v := os.Getenv(storageEnv); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(storagePathEnv); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(scheduleEnv); v != "" {
		c.Scheduler.CronExpression = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return &domain.ConfigError{Err: fmt.Errorf("unknown timezone %s: %w", tz, err)}
	}
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.App.Name != "" {
		base.App.Name = override.App.Name
	}
	base.App.DryRun = base.App.DryRun || override.App.DryRun

	if override.Feed.BaseURL != "" {
		base.Feed.BaseURL = override.Feed.BaseURL
	}
	if override.Feed.QueryEmail != "" {
		base.Feed.QueryEmail = override.Feed.QueryEmail
	}
	if override.Feed.Window > 0 {
		base.Feed.Window = override.Feed.Window
	}
	if override.Feed.MaxResults > 0 {
		base.Feed.MaxResults = override.Feed.MaxResults
	}
	if override.Feed.Timeout > 0 {
		base.Feed.Timeout = override.Feed.Timeout
	}
	if override.Feed.Attempts > 0 {
		base.Feed.Attempts = override.Feed.Attempts
	}
	if override.Feed.Concurrency > 0 {
		base.Feed.Concurrency = override.Feed.Concurrency
	}

	// Areas from the file extend or replace individual defaults.
	for name, area := range override.Areas {
		base.Areas[name] = area
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Delivery.Username != "" {
		base.Delivery.Username = override.Delivery.Username
	}
	if override.Delivery.IconEmoji != "" {
		base.Delivery.IconEmoji = override.Delivery.IconEmoji
	}
	if override.Delivery.Attempts > 0 {
		base.Delivery.Attempts = override.Delivery.Attempts
	}
	if override.Delivery.Delay > 0 {
		base.Delivery.Delay = override.Delivery.Delay
	}

	if override.Notifications.WebhookURL != "" {
		base.Notifications.WebhookURL = override.Notifications.WebhookURL
	}
	if override.Notifications.WebhookFile != "" {
		base.Notifications.WebhookFile = override.Notifications.WebhookFile
	}
	if len(override.Notifications.Recipients) > 0 {
		base.Notifications.Recipients = override.Notifications.Recipients
	}
	if len(override.Notifications.Operators) > 0 {
		base.Notifications.Operators = override.Notifications.Operators
	}
	if override.Notifications.OperatorsFile != "" {
		base.Notifications.OperatorsFile = override.Notifications.OperatorsFile
	}
	if override.Notifications.SMTP.Addr != "" {
		base.Notifications.SMTP.Addr = override.Notifications.SMTP.Addr
	}

	if override.Storage.Backend != "" {
		base.Storage.Backend = override.Storage.Backend
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		App: AppConfig{Name: "paperPoster"},
		Feed: FeedConfig{
			BaseURL:     query.DefaultBaseURL,
			Window:      query.DefaultWindow,
			MaxResults:  query.DefaultMaxResults,
			Timeout:     120 * time.Second,
			Attempts:    2,
			Concurrency: 1,
		},
		Areas: query.DefaultAreas(),
		Delivery: DeliveryConfig{
			Attempts: 15,
			Delay:    120 * time.Second,
		},
		Notifications: NotificationConfig{
			SMTP: SMTPConfig{Addr: "localhost:25"},
		},
		Storage:   StorageConfig{Backend: BackendFile},
		Scheduler: SchedulerConfig{CronExpression: DefaultSchedule, Timezone: defaultTimezone, location: tz},
		Metrics:   MetricsConfig{Addr: ":9090"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Source returns the source bound to name, if any.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}
