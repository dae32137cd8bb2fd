package xlsx

type Option func(w *Writer)

// WithSheet specifies the worksheet the summaries are written to.
// Defaults to "Sheet1"
func WithSheet(sheet string) Option {
	return func(w *Writer) {
		w.sheet = sheet
	}
}

// WithOverwrite makes every save replace the file with a single-row table,
// instead of appending a row to the existing one
func WithOverwrite(overwrite bool) Option {
	return func(w *Writer) {
		w.overwrite = overwrite
	}
}
