package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sig-0/kursrates/storage"
	"github.com/sig-0/kursrates/storage/mock"
	"github.com/sig-0/kursrates/storage/types"
)

func TestTee_SaveSummary(t *testing.T) {
	t.Parallel()

	summary := &types.Summary{
		CapturedAt: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
		Source:     types.SourceKurs,
	}

	t.Run("all writers called", func(t *testing.T) {
		t.Parallel()

		var calls int

		w := &mock.Storage{
			SaveSummaryFn: func(_ context.Context, s *types.Summary) error {
				calls++

				assert.Equal(t, summary, s)

				return nil
			},
		}

		assert.NoError(t, storage.NewTee(w, w, w).SaveSummary(context.Background(), summary))
		assert.Equal(t, 3, calls)
	})

	t.Run("failing writer does not stop the rest", func(t *testing.T) {
		t.Parallel()

		var (
			saveErr = errors.New("disk full")
			called  bool

			failing = &mock.Storage{
				SaveSummaryFn: func(_ context.Context, _ *types.Summary) error {
					return saveErr
				},
			}

			healthy = &mock.Storage{
				SaveSummaryFn: func(_ context.Context, _ *types.Summary) error {
					called = true

					return nil
				},
			}
		)

		err := storage.NewTee(failing, healthy).SaveSummary(context.Background(), summary)

		assert.ErrorIs(t, err, saveErr)
		assert.True(t, called)
	})
}
