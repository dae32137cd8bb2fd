package mock

import (
	"context"
	"time"

	"github.com/sig-0/kursrates/storage/types"
)

type (
	SaveSummaryDelegate   func(context.Context, *types.Summary) error
	LatestSummaryDelegate func(context.Context, *types.Source, time.Time) (*types.Summary, error)
	SummariesDelegate     func(context.Context, *types.SummaryQuery) (*types.Page[*types.Summary], error)
	ListSourcesDelegate   func(context.Context) ([]types.Source, error)
)

type Storage struct {
	SaveSummaryFn   SaveSummaryDelegate
	LatestSummaryFn LatestSummaryDelegate
	SummariesFn     SummariesDelegate
	ListSourcesFn   ListSourcesDelegate
}

func (m *Storage) SaveSummary(ctx context.Context, s *types.Summary) error {
	if m.SaveSummaryFn != nil {
		return m.SaveSummaryFn(ctx, s)
	}

	return nil
}

func (m *Storage) LatestSummary(
	ctx context.Context,
	source *types.Source,
	at time.Time,
) (*types.Summary, error) {
	if m.LatestSummaryFn != nil {
		return m.LatestSummaryFn(ctx, source, at)
	}

	return nil, nil
}

func (m *Storage) Summaries(
	ctx context.Context,
	query *types.SummaryQuery,
) (*types.Page[*types.Summary], error) {
	if m.SummariesFn != nil {
		return m.SummariesFn(ctx, query)
	}

	return nil, nil
}

func (m *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	if m.ListSourcesFn != nil {
		return m.ListSourcesFn(ctx)
	}

	return nil, nil
}
