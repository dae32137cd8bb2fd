// Package pipeline holds the scrape pipeline flags shared by the
// serve and scrape commands
package pipeline

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sig-0/kursrates/provider/kurs"
	"github.com/sig-0/kursrates/storage/types"
	"github.com/sig-0/kursrates/storage/xlsx"
	"github.com/sig-0/kursrates/summary"
)

const (
	DefaultSchedule = "@every 24h"
	DefaultTimeout  = time.Second * 30
)

var (
	errInvalidURL       = errors.New("invalid page URL")
	errInvalidSelectors = errors.New("invalid rate selectors")
	errInvalidTimeout   = errors.New("invalid fetch timeout")
	errInvalidSource    = errors.New("invalid source name")
)

// Config wraps the scrape pipeline configuration
type Config struct {
	URL              string
	PurchaseSelector string
	SaleSelector     string
	Source           string
	Schedule         string
	Timeout          time.Duration
	ExcludeZero      bool

	XLSXPath      string
	XLSXSheet     string
	XLSXOverwrite bool
}

// DefaultConfig returns the default pipeline configuration.
// The XLSX export is disabled by default
func DefaultConfig() *Config {
	return &Config{
		URL:              kurs.DefaultURL,
		PurchaseSelector: kurs.DefaultPurchaseSelector,
		SaleSelector:     kurs.DefaultSaleSelector,
		Source:           types.SourceKurs.String(),
		Schedule:         DefaultSchedule,
		Timeout:          DefaultTimeout,
		XLSXSheet:        xlsx.DefaultSheet,
	}
}

// RegisterFlags registers the pipeline flags, defaulting to the current values
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.URL,
		"url",
		c.URL,
		"the URL of the exchange rate listing page",
	)

	fs.StringVar(
		&c.PurchaseSelector,
		"purchase-selector",
		c.PurchaseSelector,
		"the CSS selector of the purchase rate cells",
	)

	fs.StringVar(
		&c.SaleSelector,
		"sale-selector",
		c.SaleSelector,
		"the CSS selector of the sale rate cells",
	)

	fs.StringVar(
		&c.Source,
		"source",
		c.Source,
		"the source name the summaries are attributed to",
	)

	fs.StringVar(
		&c.Schedule,
		"schedule",
		c.Schedule,
		"the cron schedule of the page scrape (ex. @daily, 0 9 * * *)",
	)

	fs.DurationVar(
		&c.Timeout,
		"timeout",
		c.Timeout,
		"the page fetch timeout",
	)

	fs.BoolVar(
		&c.ExcludeZero,
		"exclude-zero",
		c.ExcludeZero,
		"drop rates equal to 0 before computing the min / max",
	)

	fs.StringVar(
		&c.XLSXPath,
		"xlsx",
		c.XLSXPath,
		"the XLSX file the summaries are exported to, if any",
	)

	fs.StringVar(
		&c.XLSXSheet,
		"xlsx-sheet",
		c.XLSXSheet,
		"the XLSX worksheet the summaries are exported to",
	)

	fs.BoolVar(
		&c.XLSXOverwrite,
		"xlsx-overwrite",
		c.XLSXOverwrite,
		"replace the XLSX file on every run, instead of appending a row",
	)
}

// Validate validates the pipeline configuration
func (c *Config) Validate() error {
	if c.URL == "" {
		return errInvalidURL
	}

	if c.PurchaseSelector == "" || c.SaleSelector == "" {
		return errInvalidSelectors
	}

	if c.Timeout <= 0 {
		return errInvalidTimeout
	}

	if c.Source == "" {
		return errInvalidSource
	}

	return nil
}

// ParseSchedule parses the configured cron schedule
func (c *Config) ParseSchedule() (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("unable to parse schedule %q, %w", c.Schedule, err)
	}

	return schedule, nil
}

// NewAggregator creates the token aggregator, reporting to the given observer (if any)
func (c *Config) NewAggregator(logger *slog.Logger, obs summary.Observer) *summary.Aggregator {
	opts := []summary.Option{
		summary.WithLogger(logger),
		summary.WithExcludeZero(c.ExcludeZero),
	}

	if obs != nil {
		opts = append(opts, summary.WithObserver(obs))
	}

	return summary.NewAggregator(opts...)
}

// NewProvider creates the page scrape provider
func (c *Config) NewProvider(logger *slog.Logger, obs summary.Observer) (*kurs.Provider, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	schedule, err := c.ParseSchedule()
	if err != nil {
		return nil, err
	}

	return kurs.NewProvider(
		c.URL,
		c.Timeout,
		schedule,
		kurs.WithLogger(logger),
		kurs.WithSource(types.Source(c.Source)),
		kurs.WithSelectors(c.PurchaseSelector, c.SaleSelector),
		kurs.WithAggregator(c.NewAggregator(logger, obs)),
	), nil
}

// NewXLSXWriter creates the XLSX exporter, or returns nil if the export is disabled
func (c *Config) NewXLSXWriter() *xlsx.Writer {
	if c.XLSXPath == "" {
		return nil
	}

	return xlsx.NewWriter(
		c.XLSXPath,
		xlsx.WithSheet(c.XLSXSheet),
		xlsx.WithOverwrite(c.XLSXOverwrite),
	)
}
