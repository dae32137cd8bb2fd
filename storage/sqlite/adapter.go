package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sig-0/kursrates/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rate_summaries (
		source         TEXT    NOT NULL,
		captured_at    INTEGER NOT NULL,
		max_purchase   REAL,
		min_purchase   REAL,
		purchase_count INTEGER NOT NULL DEFAULT 0,
		max_sale       REAL,
		min_sale       REAL,
		sale_count     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (source, captured_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_summaries_captured_at ON rate_summaries(captured_at)`,
}

const summaryColumns = `source, captured_at,
	max_purchase, min_purchase, purchase_count,
	max_sale, min_sale, sale_count`

// Storage persists rate summaries to a SQLite database
type Storage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStorage opens (or creates) the SQLite database and runs migrations
func NewStorage(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite: %w", err)
	}

	// WAL mode, so readers don't block the ingest writes
	if _, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("unable to set WAL mode: %w", err)
	}

	for _, stmt := range migrations {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("unable to migrate sqlite: %w", err)
		}
	}

	return &Storage{
		db: db,
	}, nil
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveSummary(ctx context.Context, summary *types.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO rate_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, captured_at) DO UPDATE SET
			max_purchase = excluded.max_purchase,
			min_purchase = excluded.min_purchase,
			purchase_count = excluded.purchase_count,
			max_sale = excluded.max_sale,
			min_sale = excluded.min_sale,
			sale_count = excluded.sale_count`,
		summary.Source.String(),
		summary.CapturedAt.UTC().UnixNano(),
		toNullFloat(summary.Purchase.Max),
		toNullFloat(summary.Purchase.Min),
		summary.Purchase.Count,
		toNullFloat(summary.Sale.Max),
		toNullFloat(summary.Sale.Min),
		summary.Sale.Count,
	)
	if err != nil {
		return fmt.Errorf("unable to save rate summary: %w", err)
	}

	return nil
}

func (s *Storage) LatestSummary(
	ctx context.Context,
	source *types.Source,
	asOf time.Time,
) (*types.Summary, error) {
	var (
		where = []string{"captured_at <= ?"}
		args  = []any{asOf.UTC().UnixNano()}
	)

	if source != nil {
		where = append(where, "source = ?")
		args = append(args, source.String())
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+summaryColumns+` FROM rate_summaries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY captured_at DESC, source ASC
		LIMIT 1`,
		args...,
	)

	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // valid case
		}

		return nil, fmt.Errorf("unable to fetch summary: %w", err)
	}

	return summary, nil
}

func (s *Storage) Summaries(
	ctx context.Context,
	query *types.SummaryQuery,
) (*types.Page[*types.Summary], error) {
	var (
		where []string
		args  []any
	)

	if query.Source != nil {
		where = append(where, "source = ?")
		args = append(args, query.Source.String())
	}

	if query.From != nil {
		where = append(where, "captured_at >= ?")
		args = append(args, query.From.UTC().UnixNano())
	}

	if query.To != nil {
		where = append(where, "captured_at <= ?")
		args = append(args, query.To.UTC().UnixNano())
	}

	filter := ""
	if len(where) > 0 {
		filter = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64

	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM rate_summaries `+filter,
		args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("unable to count summaries: %w", err)
	}

	if total == 0 || query.Offset >= total || query.Offset < 0 {
		return &types.Page[*types.Summary]{
			Results: nil,
			Total:   total,
		}, nil
	}

	lim := query.Limit
	if lim <= 0 {
		lim = defaultLimit
	}

	if lim > maxLimit {
		lim = maxLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+summaryColumns+` FROM rate_summaries `+filter+`
		ORDER BY captured_at DESC, source ASC
		LIMIT ? OFFSET ?`,
		append(args, lim, query.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch summaries: %w", err)
	}
	defer rows.Close()

	items := make([]*types.Summary, 0, lim)

	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan summary: %w", err)
		}

		items = append(items, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate summaries: %w", err)
	}

	return &types.Page[*types.Summary]{
		Results: items,
		Total:   total,
	}, nil
}

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT source FROM rate_summaries ORDER BY source ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}
	defer rows.Close()

	var out []types.Source

	for rows.Next() {
		var src string

		if err = rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("unable to scan source: %w", err)
		}

		out = append(out, types.Source(src))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate sources: %w", err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSummary parses a rate_summaries row into the common Go type
func scanSummary(row scanner) (*types.Summary, error) {
	var (
		source                   string
		capturedAt               int64
		maxPurchase, minPurchase sql.NullFloat64
		maxSale, minSale         sql.NullFloat64
		purchaseCount, saleCount int
	)

	if err := row.Scan(
		&source,
		&capturedAt,
		&maxPurchase,
		&minPurchase,
		&purchaseCount,
		&maxSale,
		&minSale,
		&saleCount,
	); err != nil {
		return nil, err
	}

	return &types.Summary{
		CapturedAt: time.Unix(0, capturedAt).UTC(),
		Source:     types.Source(source),
		Purchase:   toGroupResult(minPurchase, maxPurchase, purchaseCount),
		Sale:       toGroupResult(minSale, maxSale, saleCount),
	}, nil
}

func toGroupResult(minRate, maxRate sql.NullFloat64, count int) types.GroupResult {
	if !minRate.Valid || !maxRate.Valid {
		return types.GroupResult{}
	}

	var (
		lo = minRate.Float64
		hi = maxRate.Float64
	)

	return types.GroupResult{
		Found: true,
		Min:   &lo,
		Max:   &hi,
		Count: count,
	}
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{
		Float64: *v,
		Valid:   true,
	}
}
