package summary

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage/types"
)

type outcomeKey struct {
	group   types.Group
	outcome Outcome
}

type recordingObserver struct {
	counts map[outcomeKey]int
	mu     sync.Mutex
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		counts: make(map[outcomeKey]int),
	}
}

func (r *recordingObserver) ObserveToken(group types.Group, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[outcomeKey{group: group, outcome: outcome}]++
}

func (r *recordingObserver) count(group types.Group, outcome Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[outcomeKey{group: group, outcome: outcome}]
}

func TestAggregator_Aggregate(t *testing.T) {
	t.Parallel()

	t.Run("no tokens", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator().Aggregate(types.GroupPurchase, nil)

		assert.False(t, res.Found)
		assert.Nil(t, res.Min)
		assert.Nil(t, res.Max)
		assert.Zero(t, res.Count)
	})

	t.Run("only invalid tokens", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator().Aggregate(
			types.GroupSale,
			[]string{"", "  ", "abc", "n/a"},
		)

		assert.False(t, res.Found)
		assert.Nil(t, res.Min)
		assert.Nil(t, res.Max)
	})

	t.Run("extreme exponent tokens", func(t *testing.T) {
		t.Parallel()

		start := time.Now()

		res := NewAggregator(WithExcludeZero(true)).Aggregate(
			types.GroupSale,
			[]string{"1e-20000000", "450", "1e20000000"},
		)

		assert.Less(t, time.Since(start), time.Second)

		require.True(t, res.Found)
		assert.Equal(t, 450.0, *res.Min)
		assert.Equal(t, 450.0, *res.Max)
		assert.Equal(t, 1, res.Count)
	})

	t.Run("min and max", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator().Aggregate(
			types.GroupPurchase,
			[]string{"450.0", "452.5", "449.0"},
		)

		require.True(t, res.Found)
		assert.Equal(t, 452.5, *res.Max)
		assert.Equal(t, 449.0, *res.Min)
		assert.Equal(t, 3, res.Count)
	})

	t.Run("invalid tokens are skipped", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator().Aggregate(
			types.GroupPurchase,
			[]string{"", "451,2", "n/a", " 449,9 ", "1e400"},
		)

		require.True(t, res.Found)
		assert.Equal(t, 451.2, *res.Max)
		assert.Equal(t, 449.9, *res.Min)
		assert.Equal(t, 2, res.Count)
	})

	t.Run("zero excluded", func(t *testing.T) {
		t.Parallel()

		a := NewAggregator(WithExcludeZero(true))
		res := a.Aggregate(
			types.GroupPurchase,
			[]string{"450.0", "0", "449.0"},
		)

		require.True(t, res.Found)
		assert.True(t, a.ExcludeZero())
		assert.Equal(t, 450.0, *res.Max)
		assert.Equal(t, 449.0, *res.Min)
	})

	t.Run("zero included", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator(WithExcludeZero(false)).Aggregate(
			types.GroupPurchase,
			[]string{"450.0", "0", "449.0"},
		)

		require.True(t, res.Found)
		assert.Equal(t, 450.0, *res.Max)
		assert.Equal(t, 0.0, *res.Min)
	})

	t.Run("only zeros excluded", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator(WithExcludeZero(true)).Aggregate(
			types.GroupSale,
			[]string{"0", "0,0", "0.04"},
		)

		assert.False(t, res.Found)
		assert.Nil(t, res.Min)
		assert.Nil(t, res.Max)
	})

	t.Run("single negative rate", func(t *testing.T) {
		t.Parallel()

		res := NewAggregator().Aggregate(types.GroupSale, []string{"-3,25"})

		require.True(t, res.Found)
		assert.Equal(t, -3.3, *res.Max)
		assert.Equal(t, -3.3, *res.Min)
	})

	t.Run("order independent", func(t *testing.T) {
		t.Parallel()

		permutations := [][]string{
			{"449.0", "452.5", "450.0"},
			{"449.0", "450.0", "452.5"},
			{"452.5", "449.0", "450.0"},
			{"452.5", "450.0", "449.0"},
			{"450.0", "449.0", "452.5"},
			{"450.0", "452.5", "449.0"},
		}

		a := NewAggregator()

		for _, tokens := range permutations {
			res := a.Aggregate(types.GroupPurchase, tokens)

			require.True(t, res.Found)
			assert.Equal(t, 452.5, *res.Max)
			assert.Equal(t, 449.0, *res.Min)
		}
	})

	t.Run("token outcomes observed", func(t *testing.T) {
		t.Parallel()

		observer := newRecordingObserver()

		NewAggregator(
			WithExcludeZero(true),
			WithObserver(observer),
		).Aggregate(
			types.GroupSale,
			[]string{"", "abc", "0", "1e400", "452.5", "450"},
		)

		assert.Equal(t, 1, observer.count(types.GroupSale, OutcomeEmpty))
		assert.Equal(t, 1, observer.count(types.GroupSale, OutcomeMalformed))
		assert.Equal(t, 1, observer.count(types.GroupSale, OutcomeExcluded))
		assert.Equal(t, 1, observer.count(types.GroupSale, OutcomeFailed))
		assert.Equal(t, 2, observer.count(types.GroupSale, OutcomeAccepted))
		assert.Zero(t, observer.count(types.GroupPurchase, OutcomeAccepted))
	})

	t.Run("unexpected failure logged as warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := slog.New(slog.NewTextHandler(&buf, nil))

		res := NewAggregator(WithLogger(logger)).Aggregate(
			types.GroupPurchase,
			[]string{"1e400", "450"},
		)

		require.True(t, res.Found)
		assert.Equal(t, 450.0, *res.Max)

		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "unable to process rate token")
		assert.Contains(t, buf.String(), "token=1e400")
	})
}

func TestAggregator_Build(t *testing.T) {
	t.Parallel()

	capturedAt := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	t.Run("one empty group", func(t *testing.T) {
		t.Parallel()

		s := NewAggregator().Build(
			types.SourceKurs,
			nil,
			[]string{"452.5", "449,0"},
			capturedAt,
		)

		require.NotNil(t, s)
		assert.Equal(t, capturedAt, s.CapturedAt)
		assert.Equal(t, types.SourceKurs, s.Source)

		assert.False(t, s.Purchase.Found)
		assert.Nil(t, s.Purchase.Min)
		assert.Nil(t, s.Purchase.Max)

		require.True(t, s.Sale.Found)
		assert.Equal(t, 452.5, *s.Sale.Max)
		assert.Equal(t, 449.0, *s.Sale.Min)

		assert.Equal(
			t,
			[]any{"2026-10-19 09:00:00", nil, nil, 452.5, 449.0},
			s.Row(),
		)
	})

	t.Run("identical inputs yield identical summaries", func(t *testing.T) {
		t.Parallel()

		var (
			a        = NewAggregator(WithExcludeZero(true))
			purchase = []string{"450.0", "0", "449,95"}
			sale     = []string{"455", "", "456.04"}
		)

		first, err := json.Marshal(a.Build(types.SourceKurs, purchase, sale, capturedAt))
		require.NoError(t, err)

		second, err := json.Marshal(a.Build(types.SourceKurs, purchase, sale, capturedAt))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("status lines logged", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := slog.New(slog.NewTextHandler(&buf, nil))

		NewAggregator(WithLogger(logger)).Build(
			types.SourceKurs,
			[]string{"450", "452.5"},
			nil,
			capturedAt,
		)

		out := buf.String()

		assert.Contains(t, out, `msg="highest purchase rate found"`)
		assert.Contains(t, out, "rate=452.5")
		assert.Contains(t, out, `msg="lowest purchase rate found"`)
		assert.Contains(t, out, "rate=450.0")
		assert.Contains(t, out, `msg="no valid sale rates found"`)
	})
}
