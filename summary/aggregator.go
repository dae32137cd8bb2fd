package summary

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/sig-0/kursrates/storage/types"
)

// Outcome is the classification of a single processed token
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeEmpty     Outcome = "empty"
	OutcomeMalformed Outcome = "malformed"
	OutcomeExcluded  Outcome = "excluded"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) String() string {
	return string(o)
}

// Observer is notified of the outcome of every token the aggregator processes
type Observer interface {
	ObserveToken(group types.Group, outcome Outcome)
}

// Aggregator reduces raw scraped tokens into per-group min / max results
type Aggregator struct {
	logger   *slog.Logger
	observer Observer

	excludeZero bool
}

// NewAggregator creates a new aggregator instance
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ExcludeZero returns true if zero rates are dropped
func (a *Aggregator) ExcludeZero() bool {
	return a.excludeZero
}

// Aggregate parses the group tokens and tracks the lowest and highest rate.
// Tokens that are not rates are skipped, and the result is not found
// if no token yielded a rate
func (a *Aggregator) Aggregate(group types.Group, tokens []string) types.GroupResult {
	var (
		maxSeen = math.Inf(-1)
		minSeen = math.Inf(1)
		count   int
	)

	for _, token := range tokens {
		rate, err := ParseRate(token)

		switch {
		case errors.Is(err, ErrEmptyToken):
			a.observe(group, OutcomeEmpty)

			continue
		case errors.Is(err, ErrNotARate):
			a.logger.Debug(
				"skipping non-rate token",
				"group", group.String(),
				"token", token,
			)

			a.observe(group, OutcomeMalformed)

			continue
		case err != nil:
			a.logger.Warn(
				"unable to process rate token",
				"group", group.String(),
				"token", token,
				"err", err,
			)

			a.observe(group, OutcomeFailed)

			continue
		}

		if a.excludeZero && rate == 0 {
			a.observe(group, OutcomeExcluded)

			continue
		}

		maxSeen = math.Max(maxSeen, rate)
		minSeen = math.Min(minSeen, rate)
		count++

		a.observe(group, OutcomeAccepted)
	}

	if count == 0 {
		return types.GroupResult{}
	}

	return types.GroupResult{
		Found: true,
		Min:   &minSeen,
		Max:   &maxSeen,
		Count: count,
	}
}

// Build assembles the run summary from the purchase and sale tokens.
// The capture time is supplied by the caller
func (a *Aggregator) Build(
	source types.Source,
	purchase []string,
	sale []string,
	now time.Time,
) *types.Summary {
	s := &types.Summary{
		CapturedAt: now,
		Source:     source,
		Purchase:   a.Aggregate(types.GroupPurchase, purchase),
		Sale:       a.Aggregate(types.GroupSale, sale),
	}

	a.report(s.CapturedAt, types.GroupPurchase, s.Purchase)
	a.report(s.CapturedAt, types.GroupSale, s.Sale)

	return s
}

// report logs the human-readable status lines for a group result
func (a *Aggregator) report(at time.Time, group types.Group, res types.GroupResult) {
	capturedAt := at.Format(types.TimeLayout)

	if !res.Found {
		a.logger.Info(
			fmt.Sprintf("no valid %s rates found", group),
			"captured_at", capturedAt,
		)

		return
	}

	a.logger.Info(
		fmt.Sprintf("highest %s rate found", group),
		"captured_at", capturedAt,
		"rate", fmt.Sprintf("%.1f", *res.Max),
	)

	a.logger.Info(
		fmt.Sprintf("lowest %s rate found", group),
		"captured_at", capturedAt,
		"rate", fmt.Sprintf("%.1f", *res.Min),
	)
}

func (a *Aggregator) observe(group types.Group, outcome Outcome) {
	if a.observer == nil {
		return
	}

	a.observer.ObserveToken(group, outcome)
}
