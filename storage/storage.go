package storage

import (
	"context"
	"time"

	"github.com/sig-0/kursrates/storage/types"
)

// Writer persists rate summaries
type Writer interface {
	// SaveSummary saves the given run summary
	SaveSummary(context.Context, *types.Summary) error
}

// Reader is an abstraction over stored rate summaries
type Reader interface {
	// LatestSummary fetches the latest summary captured at or before the given time.
	// A nil source matches any source
	LatestSummary(context.Context, *types.Source, time.Time) (*types.Summary, error)

	// Summaries lists the summaries matching the query, newest first
	Summaries(context.Context, *types.SummaryQuery) (*types.Page[*types.Summary], error)

	// ListSources lists all present summary sources
	ListSources(context.Context) ([]types.Source, error)
}

// Storage is an abstraction over rate summary data
type Storage interface {
	Writer
	Reader
}
