package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sig-0/kursrates/storage/types"
)

// Tee fans a saved summary out to multiple writers
type Tee struct {
	writers []Writer
}

// NewTee creates a writer that saves to every given writer
func NewTee(writers ...Writer) *Tee {
	return &Tee{
		writers: writers,
	}
}

// SaveSummary saves the summary to all writers, even if some of them fail.
// The returned error joins the individual writer errors
func (t *Tee) SaveSummary(ctx context.Context, s *types.Summary) error {
	var errs []error

	for i, w := range t.writers {
		if err := w.SaveSummary(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("writer %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
