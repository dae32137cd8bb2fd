package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sig-0/kursrates/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

type key struct {
	source     string
	capturedAt int64 // unix nanos
}

type Storage struct {
	data map[key]*types.Summary

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[key]*types.Summary),
	}
}

func (s *Storage) SaveSummary(_ context.Context, summary *types.Summary) error {
	k := key{
		source:     summary.Source.String(),
		capturedAt: summary.CapturedAt.UTC().UnixNano(),
	}

	elem := summary.Copy()
	elem.CapturedAt = elem.CapturedAt.UTC()

	s.mu.Lock()
	s.data[k] = elem // key is unique
	s.mu.Unlock()

	return nil
}

func (s *Storage) LatestSummary(
	_ context.Context,
	source *types.Source,
	asOf time.Time,
) (*types.Summary, error) {
	cutoff := asOf.UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *types.Summary

	for _, v := range s.data {
		if source != nil && v.Source != *source {
			continue
		}

		if v.CapturedAt.After(cutoff) {
			continue
		}

		if best == nil || v.CapturedAt.After(best.CapturedAt) {
			best = v
		}
	}

	if best == nil {
		return nil, nil //nolint:nilnil // valid case
	}

	return best.Copy(), nil
}

func (s *Storage) Summaries(
	_ context.Context,
	query *types.SummaryQuery,
) (*types.Page[*types.Summary], error) {
	s.mu.RLock()

	out := make([]*types.Summary, 0, len(s.data))

	for _, v := range s.data {
		if query.Source != nil && v.Source != *query.Source {
			continue
		}

		if query.From != nil && v.CapturedAt.Before(query.From.UTC()) {
			continue
		}

		if query.To != nil && v.CapturedAt.After(query.To.UTC()) {
			continue
		}

		out = append(out, v.Copy())
	}

	s.mu.RUnlock()

	// Newest first
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}

		return out[i].Source.String() < out[j].Source.String()
	})

	total := int64(len(out))
	if total == 0 {
		return &types.Page[*types.Summary]{
			Results: nil,
			Total:   0,
		}, nil
	}

	lim := query.Limit
	if lim <= 0 {
		lim = defaultLimit
	}

	if lim > maxLimit {
		lim = maxLimit
	}

	off := query.Offset
	if off >= total || off < 0 {
		return &types.Page[*types.Summary]{
			Results: nil,
			Total:   total,
		}, nil
	}

	start := int(off)
	end := start + int(lim)

	if end > len(out) {
		end = len(out)
	}

	return &types.Page[*types.Summary]{
		Results: out[start:end],
		Total:   total,
	}, nil
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.source] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Source, 0, len(seen))

	for v := range seen {
		out = append(out, types.Source(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
