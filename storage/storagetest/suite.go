// Package storagetest contains the behavior checks shared by all storage.Storage adapters
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage"
	"github.com/sig-0/kursrates/storage/types"
)

// Factory creates a fresh, empty storage instance
type Factory func(t *testing.T) storage.Storage

// NewSummary creates a test summary with the given purchase and sale extremes.
// A nil pair marks the group as not found
func NewSummary(
	source types.Source,
	at time.Time,
	purchase []float64,
	sale []float64,
) *types.Summary {
	return &types.Summary{
		CapturedAt: at,
		Source:     source,
		Purchase:   groupResult(purchase),
		Sale:       groupResult(sale),
	}
}

func groupResult(minMax []float64) types.GroupResult {
	if len(minMax) != 2 {
		return types.GroupResult{}
	}

	var (
		minRate = minMax[0]
		maxRate = minMax[1]
	)

	return types.GroupResult{
		Found: true,
		Min:   &minRate,
		Max:   &maxRate,
		Count: 2,
	}
}

// Run runs the storage behavior checks against the adapter
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	var (
		base   = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
		other  = types.Source("other")
		kurs   = types.SourceKurs
		ctx    = context.Background()
		oneDay = time.Hour * 24
	)

	t.Run("save and read back", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		saved := NewSummary(kurs, base, []float64{449, 452.5}, nil)
		require.NoError(t, s.SaveSummary(ctx, saved))

		latest, err := s.LatestSummary(ctx, &kurs, base)
		require.NoError(t, err)
		require.NotNil(t, latest)

		assert.True(t, latest.CapturedAt.Equal(base))
		assert.Equal(t, kurs, latest.Source)

		require.True(t, latest.Purchase.Found)
		assert.Equal(t, 449.0, *latest.Purchase.Min)
		assert.Equal(t, 452.5, *latest.Purchase.Max)

		assert.False(t, latest.Sale.Found)
		assert.Nil(t, latest.Sale.Min)
		assert.Nil(t, latest.Sale.Max)
	})

	t.Run("latest summary as of", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		for i := 0; i < 3; i++ {
			at := base.Add(time.Duration(i) * oneDay)

			require.NoError(
				t,
				s.SaveSummary(ctx, NewSummary(kurs, at, []float64{float64(440 + i), 460}, nil)),
			)
		}

		latest, err := s.LatestSummary(ctx, &kurs, base.Add(oneDay+time.Hour))
		require.NoError(t, err)
		require.NotNil(t, latest)

		assert.Equal(t, 441.0, *latest.Purchase.Min)

		// Nothing captured that early
		latest, err = s.LatestSummary(ctx, &kurs, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Nil(t, latest)

		// Unknown source
		latest, err = s.LatestSummary(ctx, &other, base.Add(oneDay*10))
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("save overwrites same capture", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		require.NoError(t, s.SaveSummary(ctx, NewSummary(kurs, base, []float64{1, 2}, nil)))
		require.NoError(t, s.SaveSummary(ctx, NewSummary(kurs, base, []float64{3, 4}, []float64{5, 6})))

		page, err := s.Summaries(ctx, &types.SummaryQuery{})
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.EqualValues(t, 1, page.Total)
		assert.Equal(t, 3.0, *page.Results[0].Purchase.Min)
		assert.Equal(t, 6.0, *page.Results[0].Sale.Max)
	})

	t.Run("summaries filtered and paginated", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		for i := 0; i < 5; i++ {
			at := base.Add(time.Duration(i) * oneDay)

			require.NoError(t, s.SaveSummary(ctx, NewSummary(kurs, at, []float64{float64(i), 10}, nil)))
			require.NoError(t, s.SaveSummary(ctx, NewSummary(other, at, nil, []float64{float64(i), 10})))
		}

		// Source filter, newest first
		page, err := s.Summaries(ctx, &types.SummaryQuery{
			Source: &kurs,
			Limit:  2,
			Offset: 1,
		})
		require.NoError(t, err)

		assert.EqualValues(t, 5, page.Total)
		require.Len(t, page.Results, 2)
		assert.Equal(t, 3.0, *page.Results[0].Purchase.Min)
		assert.Equal(t, 2.0, *page.Results[1].Purchase.Min)

		// Time range filter (inclusive)
		var (
			from = base.Add(oneDay)
			to   = base.Add(oneDay * 2)
		)

		page, err = s.Summaries(ctx, &types.SummaryQuery{
			From: &from,
			To:   &to,
		})
		require.NoError(t, err)

		assert.EqualValues(t, 4, page.Total)
		assert.Len(t, page.Results, 4)

		for _, r := range page.Results {
			assert.False(t, r.CapturedAt.Before(from))
			assert.False(t, r.CapturedAt.After(to))
		}

		// Offset past the end
		page, err = s.Summaries(ctx, &types.SummaryQuery{
			Source: &kurs,
			Offset: 10,
		})
		require.NoError(t, err)

		assert.Empty(t, page.Results)
	})

	t.Run("list sources", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		sources, err := s.ListSources(ctx)
		require.NoError(t, err)
		assert.Empty(t, sources)

		require.NoError(t, s.SaveSummary(ctx, NewSummary(kurs, base, nil, nil)))
		require.NoError(t, s.SaveSummary(ctx, NewSummary(other, base, nil, nil)))
		require.NoError(t, s.SaveSummary(ctx, NewSummary(kurs, base.Add(oneDay), nil, nil)))

		sources, err = s.ListSources(ctx)
		require.NoError(t, err)

		assert.Equal(t, []types.Source{kurs, other}, sources)
	})
}
