package kurs

import (
	"log/slog"
	"time"

	"github.com/sig-0/kursrates/storage/types"
	"github.com/sig-0/kursrates/summary"
)

type Option func(p *Provider)

// WithLogger specifies the logger for the provider
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithSelectors specifies the CSS selectors of the purchase and sale rate cells
func WithSelectors(purchase, sale string) Option {
	return func(p *Provider) {
		p.purchaseSelector = purchase
		p.saleSelector = sale
	}
}

// WithSource specifies the source the summaries are attributed to
func WithSource(source types.Source) Option {
	return func(p *Provider) {
		p.source = source
	}
}

// WithAggregator specifies the aggregator used to reduce the scraped tokens
func WithAggregator(a *summary.Aggregator) Option {
	return func(p *Provider) {
		p.aggregator = a
	}
}

// withClock overrides the capture time source
func withClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}
