package sink

import "github.com/okian/ida/pkg/logger"

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithFormat sets the table format, csv or xlsx.
func WithFormat(f Format) Option {
	return func(w *Writer) {
		if f != "" {
			w.format = f
		}
	}
}

// WithWorkbookName sets the file name, without extension, of the xlsx
// workbook that collects every table.
func WithWorkbookName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.workbook = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
