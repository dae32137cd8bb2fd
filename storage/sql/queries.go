package sql

const saveSummaryQuery = `
INSERT INTO rate_summaries (source, captured_at,
                            max_purchase, min_purchase, purchase_count,
                            max_sale, min_sale, sale_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (source, captured_at) DO UPDATE
    SET max_purchase   = EXCLUDED.max_purchase,
        min_purchase   = EXCLUDED.min_purchase,
        purchase_count = EXCLUDED.purchase_count,
        max_sale       = EXCLUDED.max_sale,
        min_sale       = EXCLUDED.min_sale,
        sale_count     = EXCLUDED.sale_count`

// $1 source (nullable), $2 as-of
const latestSummaryQuery = `
SELECT source, captured_at,
       max_purchase, min_purchase, purchase_count,
       max_sale, min_sale, sale_count
FROM rate_summaries
WHERE ($1::TEXT IS NULL OR source = $1)
  AND captured_at <= $2
ORDER BY captured_at DESC, source ASC
LIMIT 1`

// $1 source, $2 from, $3 to (all nullable), $4 limit, $5 offset
const summariesQuery = `
SELECT source, captured_at,
       max_purchase, min_purchase, purchase_count,
       max_sale, min_sale, sale_count,
       COUNT(*) OVER () AS total
FROM rate_summaries
WHERE ($1::TEXT IS NULL OR source = $1)
  AND ($2::TIMESTAMPTZ IS NULL OR captured_at >= $2)
  AND ($3::TIMESTAMPTZ IS NULL OR captured_at <= $3)
ORDER BY captured_at DESC, source ASC
LIMIT $4 OFFSET $5`

const listSourcesQuery = `
SELECT DISTINCT source
FROM rate_summaries
ORDER BY source ASC`
