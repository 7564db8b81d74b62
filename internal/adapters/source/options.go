package source

import "github.com/okian/ida/pkg/logger"

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithSheet selects the workbook sheet to read. The first sheet is used
// when unset.
func WithSheet(name string) Option {
	return func(r *Reader) {
		r.sheet = name
	}
}

// WithNullTokens replaces the cell spellings read as null. Matching is
// case-insensitive after trimming.
func WithNullTokens(tokens ...string) Option {
	return func(r *Reader) {
		r.nulls = make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			r.nulls[normalize(t)] = struct{}{}
		}
	}
}

// WithTimeLayouts sets the layouts tried, in order, when inferring time columns.
func WithTimeLayouts(layouts ...string) Option {
	return func(r *Reader) {
		if len(layouts) > 0 {
			r.layouts = layouts
		}
	}
}

// WithComma sets the CSV field delimiter.
func WithComma(c rune) Option {
	return func(r *Reader) {
		if c != 0 {
			r.comma = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}
