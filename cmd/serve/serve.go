package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/kursrates/cmd/env"
	"github.com/sig-0/kursrates/cmd/pipeline"
	"github.com/sig-0/kursrates/ingest"
	"github.com/sig-0/kursrates/metrics"
	"github.com/sig-0/kursrates/server"
	"github.com/sig-0/kursrates/server/config"
	"github.com/sig-0/kursrates/storage"
)

const (
	defaultRetryDelay = time.Minute * 5
	defaultMaxRetries = 1
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config   *config.Config
	pipeline *pipeline.Config

	configPath string
	retryDelay time.Duration
	maxRetries int
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config:     config.DefaultConfig(),
		pipeline:   pipeline.DefaultConfig(),
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the kursrates backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeSQLiteCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.DurationVar(
		&c.retryDelay,
		"retry-delay",
		defaultRetryDelay,
		"the delay before a failed scrape is retried",
	)

	fs.IntVar(
		&c.maxRetries,
		"max-retries",
		defaultMaxRetries,
		"the number of retries of a failed scrape, before waiting for the next scheduled run",
	)

	c.pipeline.RegisterFlags(fs)
}

// readConfig reads the server configuration file, if any, over the flag values.
// Settings present in the file take precedence over the flags
func (c *serveCfg) readConfig() error {
	if c.configPath == "" {
		return nil
	}

	if err := config.ReadInto(c.configPath, c.config); err != nil {
		return fmt.Errorf("unable to read server config, %w", err)
	}

	return nil
}

// run wires the scrape pipeline to the given store,
// and runs the ingestion service alongside the HTTP server [BLOCKING]
func (c *serveCfg) run(ctx context.Context, logger *slog.Logger, store storage.Storage) error {
	m := metrics.New()

	// Create the page provider
	provider, err := c.pipeline.NewProvider(logger, m)
	if err != nil {
		return fmt.Errorf("unable to create provider, %w", err)
	}

	// Fan the summaries out to the XLSX export, if any
	var writer storage.Writer = store

	if xlsxWriter := c.pipeline.NewXLSXWriter(); xlsxWriter != nil {
		logger.Info(
			"exporting summaries",
			"path", xlsxWriter.Path(),
		)

		writer = storage.NewTee(store, xlsxWriter)
	}

	// Create the ingestion service
	orchestrator := ingest.New(
		writer,
		ingest.WithLogger(logger),
		ingest.WithObserver(m),
		ingest.WithRetryDelay(c.retryDelay),
		ingest.WithMaxRetries(c.maxRetries),
	)

	if err = orchestrator.Register(provider); err != nil {
		return fmt.Errorf("unable to register provider: %w", err)
	}

	// Create the server instance
	s, err := server.New(
		store,
		server.WithLogger(logger),
		server.WithConfig(c.config),
		server.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	return group.Wait()
}
