package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/sig-0/kursrates/storage/types"
)

const (
	// DefaultPath is the default export file
	DefaultPath = "currency_rates.xlsx"

	// DefaultSheet is the default export worksheet
	DefaultSheet = "Sheet1"
)

var errInvalidSheet = errors.New("invalid sheet name")

// Writer exports rate summaries as rows of an XLSX worksheet
type Writer struct {
	path      string
	sheet     string
	overwrite bool

	mu sync.Mutex
}

// NewWriter creates a new XLSX summary writer for the given file
func NewWriter(path string, opts ...Option) *Writer {
	w := &Writer{
		path:  path,
		sheet: DefaultSheet,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Path returns the export file path
func (w *Writer) Path() string {
	return w.path
}

// SaveSummary writes the summary as a worksheet row.
// The header row is written when the sheet is empty, and absent
// rates are left as empty cells
func (w *Writer) SaveSummary(_ context.Context, summary *types.Summary) error {
	if w.sheet == "" {
		return errInvalidSheet
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}

	defer f.Close() //nolint:errcheck // Fine to ignore

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("unable to read sheet %q: %w", w.sheet, err)
	}

	next := len(rows) + 1

	if len(rows) == 0 {
		header := types.Columns

		if err = f.SetSheetRow(w.sheet, "A1", &header); err != nil {
			return fmt.Errorf("unable to write header: %w", err)
		}

		next = 2
	}

	if err = w.writeRow(f, next, summary); err != nil {
		return err
	}

	if err = f.SaveAs(w.path); err != nil {
		return fmt.Errorf("unable to save %s: %w", w.path, err)
	}

	return nil
}

// open opens the existing export file, or creates a new one
func (w *Writer) open() (*excelize.File, error) {
	_, statErr := os.Stat(w.path)

	if w.overwrite || errors.Is(statErr, fs.ErrNotExist) {
		f := excelize.NewFile()

		if w.sheet != DefaultSheet {
			if err := f.SetSheetName(DefaultSheet, w.sheet); err != nil {
				_ = f.Close()

				return nil, fmt.Errorf("unable to name sheet %q: %w", w.sheet, err)
			}
		}

		return f, nil
	}

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", w.path, err)
	}

	idx, err := f.GetSheetIndex(w.sheet)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("unable to look up sheet %q: %w", w.sheet, err)
	}

	if idx == -1 {
		if _, err = f.NewSheet(w.sheet); err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("unable to create sheet %q: %w", w.sheet, err)
		}
	}

	return f, nil
}

// writeRow writes the summary row (see types.Columns) at the given row number
func (w *Writer) writeRow(f *excelize.File, row int, summary *types.Summary) error {
	for i, v := range summary.Row() {
		if v == nil {
			continue // absent, leave the cell empty
		}

		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("unable to resolve cell: %w", err)
		}

		switch value := v.(type) {
		case float64:
			err = f.SetCellFloat(w.sheet, cell, value, 1, 64)
		default:
			err = f.SetCellValue(w.sheet, cell, value)
		}

		if err != nil {
			return fmt.Errorf("unable to write cell %s: %w", cell, err)
		}
	}

	return nil
}
