package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/kursrates/storage"
)

var (
	errInvalidProvider = errors.New("invalid provider")
	errInvalidSchedule = errors.New("invalid schedule")
	errMissingSummary  = errors.New("provider returned no summary")
)

const (
	defaultRetryDelay = time.Minute * 5
	defaultMaxRetries = 1
)

// Orchestrator is the main job scheduler for registered providers
type Orchestrator struct {
	storage  storage.Writer
	logger   *slog.Logger
	observer Observer

	registeredProviders sync.Map

	q             iq.Queue[scheduledIngest]
	queryInterval time.Duration
	retryDelay    time.Duration
	maxRetries    int

	qMux sync.Mutex
}

// New creates a new Orchestrator instance
func New(storage storage.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:       storage,
		q:             iq.NewQueue[scheduledIngest](),
		queryInterval: time.Second, // every second
		retryDelay:    defaultRetryDelay,
		maxRetries:    defaultMaxRetries,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new provider with the orchestrator.
// The provider is immediately queued up for execution
func (o *Orchestrator) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return errInvalidProvider
	}

	if p.Schedule() == nil {
		return errInvalidSchedule
	}

	// Register the provider
	id := xid.New()
	o.registeredProviders.Store(id, p)

	o.logger.Info(
		"registered new provider",
		"name", p.Name(),
	)

	// Schedule the job
	o.scheduleIngest(
		time.Now().UTC(),
		id,
		p,
		0,
	)

	return nil
}

// Start starts the provider orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// handleIngest initializes all jobs that are executable (due)
	handleIngest := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextSI := o.nextIngest()
				if nextSI == nil {
					return // nothing to schedule anymore
				}

				o.logger.Info(
					"scheduling ingest",
					"name", nextSI.provider.Name(),
					"attempt", nextSI.attempt,
				)

				// Spawn worker
				info := &workerInfo{
					provider:   nextSI.provider,
					providerID: nextSI.providerID,
					attempt:    nextSI.attempt,
					resCh:      collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleIngest()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			handleIngest()
		case response := <-collectorCh:
			o.handleResponse(ctx, response)
		}
	}
}

// handleResponse saves the worker result and reschedules the provider
func (o *Orchestrator) handleResponse(ctx context.Context, response *workerResponse) {
	now := time.Now().UTC()

	rpRaw, ok := o.registeredProviders.Load(response.providerID)
	if !ok {
		o.logger.Error(
			"unable to load registered provider",
			"id", response.providerID.String(),
		)

		return
	}

	rp, _ := rpRaw.(Provider)

	err := response.error
	if err == nil && response.summary == nil {
		err = errMissingSummary
	}

	if o.observer != nil {
		o.observer.ObserveRun(rp.Name(), err)
	}

	if err != nil {
		o.logger.Error(
			"error encountered during summary fetch",
			"id", response.providerID.String(),
			"name", rp.Name(),
			"attempt", response.attempt,
			"err", err.Error(),
		)

		// Retry the ingest job soon, if retries are left
		if response.attempt < o.maxRetries {
			o.scheduleIngest(
				now.Add(o.retryDelay),
				response.providerID,
				rp,
				response.attempt+1,
			)

			return
		}

		o.logger.Warn(
			"retries exhausted, waiting for the next scheduled run",
			"name", rp.Name(),
		)

		o.scheduleIngest(
			rp.Schedule().Next(now),
			response.providerID,
			rp,
			0,
		)

		return
	}

	if o.observer != nil {
		o.observer.ObserveSummary(response.summary)
	}

	// Save the provider-fetched summary
	saveCtx, cancelFn := context.WithTimeout(ctx, time.Second*10)
	defer cancelFn()

	if err := o.storage.SaveSummary(saveCtx, response.summary); err != nil {
		o.logger.Error(
			"unable to save rate summary",
			"source", response.summary.Source,
			"err", err,
		)
	} else {
		o.logger.Info(
			"saved rate summary",
			"source", response.summary.Source,
			"captured_at", response.summary.CapturedAt.String(),
			"purchase_found", response.summary.Purchase.Found,
			"sale_found", response.summary.Sale.Found,
		)
	}

	// Schedule a new ingest for this provider
	o.scheduleIngest(
		rp.Schedule().Next(now),
		response.providerID,
		rp,
		0,
	)
}

// scheduleIngest schedules a new provider ingest
func (o *Orchestrator) scheduleIngest(
	at time.Time,
	providerID xid.ID,
	provider Provider,
	attempt int,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	futureSI := scheduledIngest{
		at:         at,
		providerID: providerID,
		provider:   provider,
		attempt:    attempt,
	}

	o.q.Push(futureSI)
}

// nextIngest fetches the next due ingest job, as of the moment of calling
func (o *Orchestrator) nextIngest() *scheduledIngest {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(now) {
		return nil // nothing to schedule, latest job is in the future
	}

	// Grab the next job
	nextSI := o.q.PopFront()

	return nextSI
}
