package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage"
	"github.com/sig-0/kursrates/storage/storagetest"
	"github.com/sig-0/kursrates/storage/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := NewStorage(
		context.Background(),
		filepath.Join(t.TempDir(), "summaries.db"),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func TestStorage(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return newTestStorage(t)
	})
}

func TestStorage_Reopen(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		path = filepath.Join(t.TempDir(), "summaries.db")
		at   = time.Date(2026, time.October, 19, 9, 0, 0, 123, time.UTC)
	)

	s, err := NewStorage(ctx, path)
	require.NoError(t, err)

	require.NoError(
		t,
		s.SaveSummary(ctx, storagetest.NewSummary(types.SourceKurs, at, nil, []float64{455, 457.5})),
	)
	require.NoError(t, s.Close())

	// Migrations are idempotent, and the data survives
	s, err = NewStorage(ctx, path)
	require.NoError(t, err)

	defer s.Close()

	latest, err := s.LatestSummary(ctx, nil, at)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.True(t, latest.CapturedAt.Equal(at))
	assert.False(t, latest.Purchase.Found)
	require.True(t, latest.Sale.Found)
	assert.Equal(t, 457.5, *latest.Sale.Max)
	assert.Equal(t, 2, latest.Sale.Count)
}
