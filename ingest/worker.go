package ingest

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/kursrates/storage/types"
)

// scheduledIngest is a single scheduled Provider ingest job
type scheduledIngest struct {
	at         time.Time
	provider   Provider
	providerID xid.ID
	attempt    int // retry attempt, 0 for regular runs
}

// Less is utilized to sort scheduled ingests by their due-time (latest == first)
func (a scheduledIngest) Less(b scheduledIngest) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the provider routine
type workerInfo struct {
	provider   Provider
	resCh      chan<- *workerResponse
	providerID xid.ID
	attempt    int
}

// workerResponse is the provider routine response
type workerResponse struct {
	error      error          // encountered error, if any
	summary    *types.Summary // the fetched summary
	providerID xid.ID         // the provider ID
	attempt    int            // the attempt that produced the response
}

// handleJob fetches using the provider
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	summary, err := info.provider.Fetch(ctx)

	response := &workerResponse{
		error:      err,
		summary:    summary,
		providerID: info.providerID,
		attempt:    info.attempt,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
