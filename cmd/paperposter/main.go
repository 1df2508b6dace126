package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata" // scheduler.timezone in scratch images

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // TLS roots for scratch images

	"PaperPoster/internal/app"
	"PaperPoster/internal/config"
	"PaperPoster/internal/domain"
	"PaperPoster/internal/logging"
	"PaperPoster/internal/rules"
)

const defaultAuthorsFile = "fave_authors.txt"

var (
	mailTo      string
	webhookFile string
	username    string
	iconEmoji   string
	dryRun      bool
	areas       string
	queryEmail  string
	authorsFile string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "paperposter [flags] <rules-file>",
	Short: "Post new arXiv papers matching your keywords to chat and email",
	Long: `paperposter queries the arXiv API for each subject area, matches new entries
against the keywords in the rules file and posts the matches to a chat webhook
and to email recipients. The last seen entry per area is remembered next to the
rules file so each run only reports new papers.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := build(cmd, args[0])
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Run(cmd.Context())
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [flags] <rules-file>",
	Short: "Run a cycle on the configured cron schedule and serve /metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := build(cmd, args[0])
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Schedule(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&mailTo, "mail", "m", "", "comma-separated email recipients for the digest")
	flags.StringVarP(&webhookFile, "webhook", "w", "", "file whose first line is the chat webhook URL")
	flags.StringVarP(&username, "username", "u", "", "username shown on chat posts")
	flags.StringVarP(&iconEmoji, "emoji", "e", "", "icon_emoji shown on chat posts")
	flags.BoolVar(&dryRun, "dry_run", false, "print bodies instead of sending and keep cursors unchanged")
	flags.StringVar(&areas, "channel", "astro", "comma-separated arXiv subject areas to search")
	flags.StringVar(&queryEmail, "query_email", "", "contact address sent to arXiv in the User-Agent (required)")
	flags.StringVar(&authorsFile, "authors", defaultAuthorsFile, "favored-author file with name;Display lines")
	flags.StringVar(&configPath, "config", "", "YAML or TOML config file (default $PAPERPOSTER_CONFIG)")

	rootCmd.AddCommand(scheduleCmd)
}

func build(cmd *cobra.Command, rulesFile string) (*app.Application, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	return app.New(cfg, app.Options{
		RulesFile:       rulesFile,
		AuthorsFile:     authorsFile,
		AuthorsOptional: !cmd.Flags().Changed("authors"),
		WebhookFile:     webhookFile,
		Recipients:      rules.SplitAddresses(mailTo),
		Username:        username,
		IconEmoji:       iconEmoji,
		Areas:           splitAreas(areas),
		QueryEmail:      queryEmail,
		DryRun:          dryRun,
	}, logger)
}

func splitAreas(v string) []string {
	var out []string
	for _, a := range strings.Split(v, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
