package sql

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/sig-0/kursrates/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

// DB is the subset of the pgx connection API used by the storage.
// Both *pgx.Conn and *pgxpool.Pool satisfy it
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Storage struct {
	db DB
}

func NewStorage(db DB) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) SaveSummary(
	ctx context.Context,
	summary *types.Summary,
) error {
	_, err := s.db.Exec(
		ctx,
		saveSummaryQuery,
		summary.Source.String(),
		timeToTimestampz(summary.CapturedAt),
		floatToNumeric(summary.Purchase.Max),
		floatToNumeric(summary.Purchase.Min),
		int32(summary.Purchase.Count), //nolint:gosec // counts are small
		floatToNumeric(summary.Sale.Max),
		floatToNumeric(summary.Sale.Min),
		int32(summary.Sale.Count), //nolint:gosec // counts are small
	)
	if err != nil {
		return fmt.Errorf("unable to save rate summary: %w", err)
	}

	return nil
}

func (s *Storage) LatestSummary(
	ctx context.Context,
	source *types.Source,
	t time.Time,
) (*types.Summary, error) {
	row := s.db.QueryRow(
		ctx,
		latestSummaryQuery,
		sourceToText(source),
		timeToTimestampz(t),
	)

	var pgSummary summaryRow

	if err := row.Scan(pgSummary.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // valid case
		}

		return nil, fmt.Errorf("unable to fetch summary: %w", err)
	}

	return pgSummary.parse(), nil
}

func (s *Storage) Summaries(
	ctx context.Context,
	query *types.SummaryQuery,
) (*types.Page[*types.Summary], error) {
	lim := query.Limit
	if lim <= 0 {
		lim = defaultLimit
	}

	if lim > maxLimit {
		lim = maxLimit
	}

	rows, err := s.db.Query(
		ctx,
		summariesQuery,
		sourceToText(query.Source),
		optionalTimestampz(query.From),
		optionalTimestampz(query.To),
		lim,
		max(query.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch summaries: %w", err)
	}
	defer rows.Close()

	var (
		items []*types.Summary
		total int64
	)

	for rows.Next() {
		var pgSummary summaryRow

		if err = rows.Scan(append(pgSummary.targets(), &total)...); err != nil {
			return nil, fmt.Errorf("unable to scan summary: %w", err)
		}

		items = append(items, pgSummary.parse())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to fetch summaries: %w", err)
	}

	return &types.Page[*types.Summary]{
		Results: items,
		Total:   total,
	}, nil
}

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	rows, err := s.db.Query(ctx, listSourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	out := make([]types.Source, 0, len(results))

	for _, src := range results {
		out = append(out, types.Source(src))
	}

	return out, nil
}

// summaryRow is a single rate_summaries row
type summaryRow struct {
	Source        string
	CapturedAt    pgtype.Timestamptz
	MaxPurchase   pgtype.Numeric
	MinPurchase   pgtype.Numeric
	PurchaseCount int32
	MaxSale       pgtype.Numeric
	MinSale       pgtype.Numeric
	SaleCount     int32
}

// targets returns the scan destinations, in column order
func (r *summaryRow) targets() []any {
	return []any{
		&r.Source,
		&r.CapturedAt,
		&r.MaxPurchase,
		&r.MinPurchase,
		&r.PurchaseCount,
		&r.MaxSale,
		&r.MinSale,
		&r.SaleCount,
	}
}

// parse parses the postgres summary to the common Go type
func (r *summaryRow) parse() *types.Summary {
	return &types.Summary{
		CapturedAt: timestampzToTime(r.CapturedAt),
		Source:     types.Source(r.Source),
		Purchase:   parseGroupResult(r.MinPurchase, r.MaxPurchase, r.PurchaseCount),
		Sale:       parseGroupResult(r.MinSale, r.MaxSale, r.SaleCount),
	}
}

func parseGroupResult(minRate, maxRate pgtype.Numeric, count int32) types.GroupResult {
	lo := numericToFloat(minRate)
	hi := numericToFloat(maxRate)

	if lo == nil || hi == nil {
		return types.GroupResult{}
	}

	return types.GroupResult{
		Found: true,
		Min:   lo,
		Max:   hi,
		Count: int(count),
	}
}

// floatToNumeric converts the optional rate to postgres numeric.
// Rates are kept at 1dp, stored as an integer with exponent -1
func floatToNumeric(value *float64) pgtype.Numeric {
	if value == nil {
		return pgtype.Numeric{}
	}

	switch {
	case math.IsNaN(*value):
		return pgtype.Numeric{NaN: true, Valid: true}
	case math.IsInf(*value, 1):
		return pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}
	case math.IsInf(*value, -1):
		return pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true}
	}

	d := decimal.NewFromFloat(*value).Round(1)

	return pgtype.Numeric{
		Int:   d.Coefficient(),
		Exp:   d.Exponent(),
		Valid: true,
	}
}

// numericToFloat converts the postgres value to an optional rate
func numericToFloat(value pgtype.Numeric) *float64 {
	if !value.Valid || value.Int == nil {
		return nil
	}

	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return &f
}

// sourceToText converts the optional source to postgres text
func sourceToText(source *types.Source) pgtype.Text {
	if source == nil {
		return pgtype.Text{}
	}

	return pgtype.Text{
		String: source.String(),
		Valid:  true,
	}
}

// timeToTimestampz converts the time value to postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// optionalTimestampz converts the optional time value to postgres timestamp
func optionalTimestampz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}

	return timeToTimestampz(*t)
}

// timestampzToTime converts the postgres timestamp value to time
func timestampzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time.UTC()
}
