package sql

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage/types"
)

type (
	execDelegate     func(context.Context, string, ...any) (pgconn.CommandTag, error)
	queryDelegate    func(context.Context, string, ...any) (pgx.Rows, error)
	queryRowDelegate func(context.Context, string, ...any) pgx.Row
)

type mockDB struct {
	execFn     execDelegate
	queryFn    queryDelegate
	queryRowFn queryRowDelegate
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, args...)
	}

	return pgconn.CommandTag{}, nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}

	return nil, errors.New("not implemented")
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}

	return &mockRow{err: pgx.ErrNoRows}
}

type mockRow struct {
	err  error
	scan func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}

	return m.scan(dest...)
}

func ptr(v float64) *float64 {
	return &v
}

func TestStorage_SaveSummary(t *testing.T) {
	t.Parallel()

	t.Run("absent group stored as NULL", func(t *testing.T) {
		t.Parallel()

		var captured []any

		db := &mockDB{
			execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				assert.Equal(t, saveSummaryQuery, sql)

				captured = args

				return pgconn.CommandTag{}, nil
			},
		}

		summary := &types.Summary{
			CapturedAt: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
			Source:     types.SourceKurs,
			Purchase: types.GroupResult{
				Found: true,
				Min:   ptr(449),
				Max:   ptr(452.5),
				Count: 3,
			},
		}

		require.NoError(t, NewStorage(db).SaveSummary(context.Background(), summary))
		require.Len(t, captured, 8)

		assert.Equal(t, "kurs.kz", captured[0])

		maxPurchase, ok := captured[2].(pgtype.Numeric)
		require.True(t, ok)
		assert.Equal(t, 452.5, *numericToFloat(maxPurchase))
		assert.Equal(t, int32(3), captured[4])

		maxSale, ok := captured[5].(pgtype.Numeric)
		require.True(t, ok)
		assert.False(t, maxSale.Valid)
	})

	t.Run("exec error", func(t *testing.T) {
		t.Parallel()

		db := &mockDB{
			execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("boom")
			},
		}

		assert.Error(t, NewStorage(db).SaveSummary(context.Background(), &types.Summary{}))
	})
}

func TestStorage_LatestSummary(t *testing.T) {
	t.Parallel()

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()

		summary, err := NewStorage(&mockDB{}).LatestSummary(context.Background(), nil, time.Now())
		require.NoError(t, err)

		assert.Nil(t, summary)
	})

	t.Run("row parsed", func(t *testing.T) {
		t.Parallel()

		var (
			at     = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
			source = types.SourceKurs
		)

		db := &mockDB{
			queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
				src, ok := args[0].(pgtype.Text)
				require.True(t, ok)
				assert.Equal(t, "kurs.kz", src.String)

				return &mockRow{
					scan: func(dest ...any) error {
						*dest[0].(*string) = source.String()
						*dest[1].(*pgtype.Timestamptz) = timeToTimestampz(at)
						*dest[2].(*pgtype.Numeric) = floatToNumeric(ptr(452.5))
						*dest[3].(*pgtype.Numeric) = floatToNumeric(ptr(449))
						*dest[4].(*int32) = 2
						*dest[5].(*pgtype.Numeric) = pgtype.Numeric{}
						*dest[6].(*pgtype.Numeric) = pgtype.Numeric{}
						*dest[7].(*int32) = 0

						return nil
					},
				}
			},
		}

		summary, err := NewStorage(db).LatestSummary(context.Background(), &source, at)
		require.NoError(t, err)
		require.NotNil(t, summary)

		assert.True(t, summary.CapturedAt.Equal(at))
		require.True(t, summary.Purchase.Found)
		assert.Equal(t, 452.5, *summary.Purchase.Max)
		assert.Equal(t, 449.0, *summary.Purchase.Min)
		assert.Equal(t, 2, summary.Purchase.Count)
		assert.False(t, summary.Sale.Found)
		assert.Nil(t, summary.Sale.Max)
	})
}

func TestStorage_Summaries(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryFn: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			assert.Equal(t, maxLimit, args[3])
			assert.Equal(t, int64(0), args[4])

			return nil, errors.New("boom")
		},
	}

	_, err := NewStorage(db).Summaries(context.Background(), &types.SummaryQuery{
		Limit:  1000,
		Offset: -5,
	})

	assert.Error(t, err)
}

func TestNumericConversion(t *testing.T) {
	t.Parallel()

	t.Run("absent value", func(t *testing.T) {
		t.Parallel()

		n := floatToNumeric(nil)

		assert.False(t, n.Valid)
		assert.Nil(t, numericToFloat(n))
	})

	t.Run("one decimal place", func(t *testing.T) {
		t.Parallel()

		for _, v := range []float64{0, 449, 452.5, -3.3, 123456.7} {
			n := floatToNumeric(ptr(v))

			require.True(t, n.Valid)
			assert.Equal(t, int32(-1), n.Exp)
			assert.Equal(t, v, *numericToFloat(n))
		}
	})

	t.Run("beyond the int64 range", func(t *testing.T) {
		t.Parallel()

		n := floatToNumeric(ptr(1e20))

		require.True(t, n.Valid)
		assert.Equal(t, int32(-1), n.Exp)

		expected, ok := new(big.Int).SetString("1000000000000000000000", 10)
		require.True(t, ok)

		assert.Equal(t, 0, expected.Cmp(n.Int))
		assert.Equal(t, 1e20, *numericToFloat(n))

		negative := floatToNumeric(ptr(-1e19))

		require.True(t, negative.Valid)
		assert.Equal(t, -1e19, *numericToFloat(negative))
	})

	t.Run("non-finite values", func(t *testing.T) {
		t.Parallel()

		nan := floatToNumeric(ptr(math.NaN()))

		assert.True(t, nan.Valid)
		assert.True(t, nan.NaN)

		inf := floatToNumeric(ptr(math.Inf(-1)))

		assert.True(t, inf.Valid)
		assert.Equal(t, pgtype.NegativeInfinity, inf.InfinityModifier)
	})

	t.Run("positive exponent", func(t *testing.T) {
		t.Parallel()

		n := pgtype.Numeric{
			Int:   big.NewInt(45),
			Exp:   1,
			Valid: true,
		}

		assert.Equal(t, 450.0, *numericToFloat(n))
	})
}
