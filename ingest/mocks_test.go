package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sig-0/kursrates/storage/types"
)

type (
	nameDelegate     func() string
	scheduleDelegate func() cron.Schedule
	fetchDelegate    func(context.Context) (*types.Summary, error)
)

type mockProvider struct {
	nameFn     nameDelegate
	scheduleFn scheduleDelegate
	fetchFn    fetchDelegate
}

func (m *mockProvider) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return ""
}

func (m *mockProvider) Schedule() cron.Schedule {
	if m.scheduleFn != nil {
		return m.scheduleFn()
	}

	return nil
}

func (m *mockProvider) Fetch(ctx context.Context) (*types.Summary, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}

// every is a sub-second constant delay schedule
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

type mockObserver struct {
	runs      map[string]int
	failures  map[string]int
	summaries int

	mu sync.Mutex
}

func newMockObserver() *mockObserver {
	return &mockObserver{
		runs:     make(map[string]int),
		failures: make(map[string]int),
	}
}

func (m *mockObserver) ObserveRun(provider string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[provider]++

	if err != nil {
		m.failures[provider]++
	}
}

func (m *mockObserver) ObserveSummary(_ *types.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries++
}
