package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage"
	"github.com/sig-0/kursrates/storage/storagetest"
	"github.com/sig-0/kursrates/storage/types"
)

func TestStorage(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(_ *testing.T) storage.Storage {
		return NewStorage()
	})
}

func TestStorage_Isolation(t *testing.T) {
	t.Parallel()

	var (
		s   = NewStorage()
		ctx = context.Background()
		at  = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	)

	saved := storagetest.NewSummary(types.SourceKurs, at, []float64{449, 452.5}, nil)
	require.NoError(t, s.SaveSummary(ctx, saved))

	// Mutating the saved or returned summary must not leak into the store
	*saved.Purchase.Min = 1

	latest, err := s.LatestSummary(ctx, nil, at)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.Equal(t, 449.0, *latest.Purchase.Min)

	*latest.Purchase.Max = 2

	again, err := s.LatestSummary(ctx, nil, at)
	require.NoError(t, err)

	assert.Equal(t, 452.5, *again.Purchase.Max)
}
