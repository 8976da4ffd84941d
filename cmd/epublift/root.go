package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"epublift/internal/api"
	"epublift/internal/config"
	"epublift/internal/logging"
	"epublift/internal/notifications"
	"epublift/internal/poller"
	"epublift/internal/transport"
	"epublift/internal/workflow"
	"epublift/internal/workspace"
)

type rootFlags struct {
	configPath string
	host       string
	token      string
	keep       bool
	title      string
	author     string
	isbn       string
	publisher  string
	backend    string
	logLevel   string
	logFormat  string

	pollIntervalMS  int
	pollMaxAttempts int
}

func newRootCommand() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "epublift [flags] <input.epub>",
		Short: "Upgrade an EPUB through the remote bookflow conversion service",
		Long: `epublift uploads an EPUB to the remote conversion service, waits for
server-side ingestion, triggers a style-preserving EPUB3 conversion,
and downloads the result next to the input file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.host, "host", "", "Conversion service base URL")
	cmd.Flags().StringVar(&flags.token, "token", "", "API token (32 hex characters)")
	cmd.Flags().BoolVar(&flags.keep, "keep", false, "Keep the remote job instead of deleting it")
	cmd.Flags().StringVar(&flags.title, "title", "", "Book title metadata")
	cmd.Flags().StringVar(&flags.author, "author", "", "Book author metadata")
	cmd.Flags().StringVar(&flags.isbn, "isbn", "", "Book ISBN metadata")
	cmd.Flags().StringVar(&flags.publisher, "publisher", "", "Book publisher metadata")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Transport backend (auto/native/curl)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug/info/warn/error)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format (console/json)")
	cmd.Flags().IntVar(&flags.pollIntervalMS, "poll-interval", 0, "Status poll interval in milliseconds")
	cmd.Flags().IntVar(&flags.pollMaxAttempts, "poll-max-attempts", 0, "Maximum status polls per wait state")

	return cmd
}

// buildConfig layers flag overrides on top of the loaded configuration
// and validates the result. Validation failures abort before any
// network call.
func buildConfig(cmd *cobra.Command, flags rootFlags, inputFile string) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("host") {
		cfg.API.Host = flags.host
	}
	if cmd.Flags().Changed("token") {
		cfg.API.Token = flags.token
	}
	if cmd.Flags().Changed("keep") {
		cfg.Workflow.KeepRemote = flags.keep
	}
	if cmd.Flags().Changed("title") {
		cfg.Metadata.Title = flags.title
	}
	if cmd.Flags().Changed("author") {
		cfg.Metadata.Author = flags.author
	}
	if cmd.Flags().Changed("isbn") {
		cfg.Metadata.ISBN = flags.isbn
	}
	if cmd.Flags().Changed("publisher") {
		cfg.Metadata.Publisher = flags.publisher
	}
	if cmd.Flags().Changed("backend") {
		cfg.HTTP.Backend = flags.backend
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.Workflow.PollIntervalMS = flags.pollIntervalMS
	}
	if cmd.Flags().Changed("poll-max-attempts") {
		cfg.Workflow.PollMaxAttempts = flags.pollMaxAttempts
	}
	cfg.InputFile = inputFile

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", workflow.ErrConfiguration, err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, flags rootFlags, inputFile string) error {
	cfg, err := buildConfig(cmd, flags, inputFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrConfiguration, err)
	}

	backend, err := transport.Select(cfg.HTTP.Backend, cfg.API.Token, time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrConfiguration, err)
	}
	logger.Debug("transport selected", logging.String("backend", backend.Name()))

	client := api.NewClient(backend, cfg.API.Host, api.WithLogger(logger))

	ws, err := workspace.New("", logger)
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrConfiguration, err)
	}
	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.Warn("workspace cleanup failed", logging.Error(releaseErr))
		}
	}()

	notifier := notifications.NewService(
		cfg.Notifications.NtfyTopic,
		time.Duration(cfg.Notifications.RequestTimeout)*time.Second,
	)

	p := poller.New(
		time.Duration(cfg.Workflow.PollIntervalMS)*time.Millisecond,
		cfg.Workflow.PollMaxAttempts,
		poller.NewSpinner(os.Stderr),
	)

	runner, err := workflow.New(client, &cfg, p, ws, notifier, logger)
	if err != nil {
		return err
	}

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
	if result.Kept {
		fmt.Fprintf(cmd.OutOrStdout(), "Remote job retained; continue at %s\n", result.ContinuationURL)
	}
	return nil
}
