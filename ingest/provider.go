package ingest

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/sig-0/kursrates/storage/types"
)

// Provider is a single rate summary provider
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Schedule returns the schedule at which the provider should be called
	Schedule() cron.Schedule

	// Fetch is the provider's main fetch job, yielding the run summary
	Fetch(context.Context) (*types.Summary, error)
}

// Observer is notified of every finished provider run
type Observer interface {
	// ObserveRun is called once per provider run, with the fetch error (if any)
	ObserveRun(provider string, err error)

	// ObserveSummary is called for every fetched summary
	ObserveSummary(*types.Summary)
}
