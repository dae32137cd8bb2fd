package types

import "time"

// TimeLayout is the capture time format of an exported summary row
const TimeLayout = "2006-01-02 15:04:05"

type Group string

const (
	GroupPurchase Group = "purchase"
	GroupSale     Group = "sale"
)

func (g Group) String() string {
	return string(g)
}

type Source string

const (
	SourceKurs Source = "kurs.kz" // https://kurs.kz/
)

func (s Source) String() string {
	return string(s)
}

// GroupResult is the min / max outcome for a single rate group.
// Min and Max are nil when no valid rate was found
type GroupResult struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Count int      `json:"count"`
	Found bool     `json:"found"`
}

// Summary is the single aggregated record produced per pipeline run
type Summary struct {
	CapturedAt time.Time   `json:"captured_at"`
	Source     Source      `json:"source"`
	Purchase   GroupResult `json:"purchase"`
	Sale       GroupResult `json:"sale"`
}

// Columns are the column headers of an exported summary row
var Columns = []string{
	"Time",
	"Max Purchase Rate",
	"Min Purchase Rate",
	"Max Sale Rate",
	"Min Sale Rate",
}

// Row renders the summary in the exported row shape (see Columns).
// Absent values are nil
func (s *Summary) Row() []any {
	return []any{
		s.CapturedAt.Format(TimeLayout),
		valueOrNil(s.Purchase.Max),
		valueOrNil(s.Purchase.Min),
		valueOrNil(s.Sale.Max),
		valueOrNil(s.Sale.Min),
	}
}

// Copy returns a deep copy of the summary
func (s *Summary) Copy() *Summary {
	cp := *s
	cp.Purchase = s.Purchase.copy()
	cp.Sale = s.Sale.copy()

	return &cp
}

func (g GroupResult) copy() GroupResult {
	cp := g

	if g.Min != nil {
		v := *g.Min
		cp.Min = &v
	}

	if g.Max != nil {
		v := *g.Max
		cp.Max = &v
	}

	return cp
}

func valueOrNil(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

type SummaryQuery struct {
	Source *Source    `json:"source"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
	Offset int64      `json:"offset"`
	Limit  int32      `json:"limit"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}
