package kurs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/robfig/cron/v3"

	"github.com/sig-0/kursrates/storage/types"
	"github.com/sig-0/kursrates/summary"
)

const (
	DefaultURL              = "https://kurs.kz/"
	DefaultPurchaseSelector = ".col-5.text-end.currency.svelte-sdi4lo"
	DefaultSaleSelector     = ".col-5.text-start.currency.svelte-sdi4lo"

	userAgent = "Mozilla/5.0 (compatible; kursrates/1.0)"
)

// Tokens are the raw rate cell texts scraped from a single page load
type Tokens struct {
	Purchase []string
	Sale     []string
}

// Provider is the kurs.kz website scraping provider
type Provider struct {
	client     *http.Client
	schedule   cron.Schedule
	aggregator *summary.Aggregator
	logger     *slog.Logger
	now        func() time.Time

	url              string
	source           types.Source
	purchaseSelector string
	saleSelector     string
}

// NewProvider creates a new instance of the kurs.kz website provider
func NewProvider(
	url string,
	timeout time.Duration,
	schedule cron.Schedule,
	opts ...Option,
) *Provider {
	p := &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		schedule:         schedule,
		aggregator:       summary.NewAggregator(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:              time.Now,
		url:              url,
		source:           types.SourceKurs,
		purchaseSelector: DefaultPurchaseSelector,
		saleSelector:     DefaultSaleSelector,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Name() string {
	return p.source.String()
}

func (p *Provider) Schedule() cron.Schedule {
	return p.schedule
}

func (p *Provider) Fetch(ctx context.Context) (*types.Summary, error) {
	tokens, err := p.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	if len(tokens.Purchase) == 0 && len(tokens.Sale) == 0 {
		p.logger.Warn(
			"no rate cells matched, the page layout may have changed",
			"url", p.url,
			"purchase_selector", p.purchaseSelector,
			"sale_selector", p.saleSelector,
		)
	}

	return p.aggregator.Build(
		p.source,
		tokens.Purchase,
		tokens.Sale,
		p.now().UTC(),
	), nil
}

// Tokens loads the page and collects the purchase and sale rate cell texts
func (p *Provider) Tokens(ctx context.Context) (*Tokens, error) {
	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	// Execute the request
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	// Construct document for parsing
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	return &Tokens{
		Purchase: ExtractTokens(doc, p.purchaseSelector),
		Sale:     ExtractTokens(doc, p.saleSelector),
	}, nil
}

// ExtractTokens returns the text of every element matching the selector,
// in document order
func ExtractTokens(doc *goquery.Document, selector string) []string {
	sel := doc.Find(selector)

	tokens := make([]string, 0, sel.Length())

	sel.Each(func(_ int, s *goquery.Selection) {
		tokens = append(tokens, s.Text())
	})

	return tokens
}
