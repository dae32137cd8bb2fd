package scrape

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/kursrates/cmd/env"
	"github.com/sig-0/kursrates/cmd/pipeline"
	"github.com/sig-0/kursrates/ingest"
	"github.com/sig-0/kursrates/storage"
	"github.com/sig-0/kursrates/storage/xlsx"
)

var errMissingExport = errors.New("missing XLSX export path")

// scrapeCfg wraps the scrape configuration
type scrapeCfg struct {
	pipeline *pipeline.Config
}

// NewScrapeCmd creates the one-shot scrape command.
// By default zero rates are dropped, and the summary replaces
// the contents of currency_rates.xlsx
func NewScrapeCmd() *ffcli.Command {
	p := pipeline.DefaultConfig()
	p.ExcludeZero = true
	p.XLSXPath = xlsx.DefaultPath
	p.XLSXOverwrite = true

	cfg := &scrapeCfg{
		pipeline: p,
	}

	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	cfg.pipeline.RegisterFlags(fs)

	return &ffcli.Command{
		Name:       "scrape",
		ShortUsage: "scrape [flags]",
		LongHelp:   "Scrapes the rate page once, and exports the min / max summary to XLSX",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *scrapeCfg) exec(ctx context.Context, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Debug("unable to load .env file")
	}

	writer := c.pipeline.NewXLSXWriter()
	if writer == nil {
		return errMissingExport
	}

	provider, err := c.pipeline.NewProvider(logger, nil)
	if err != nil {
		return fmt.Errorf("unable to create provider, %w", err)
	}

	if err = run(ctx, logger, provider, writer); err != nil {
		return err
	}

	logger.Info(
		"summary exported",
		"path", writer.Path(),
	)

	return nil
}

// run fetches a single summary from the provider and saves it
func run(
	ctx context.Context,
	logger *slog.Logger,
	provider ingest.Provider,
	writer storage.Writer,
) error {
	summary, err := provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch summary: %w", err)
	}

	if summary == nil {
		return fmt.Errorf("unable to fetch summary: provider %s returned none", provider.Name())
	}

	if err = writer.SaveSummary(ctx, summary); err != nil {
		return fmt.Errorf("unable to save summary: %w", err)
	}

	logger.Info(
		"summary saved",
		"source", summary.Source,
		"purchase_found", summary.Purchase.Found,
		"sale_found", summary.Sale.Found,
	)

	return nil
}
