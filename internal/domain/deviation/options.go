package deviation

import (
	"time"

	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithIDColumn sets the subject identifier column.
func WithIDColumn(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.idCol = name
		}
	}
}

// WithNominalColumn sets the planned time column.
func WithNominalColumn(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.nominalCol = name
		}
	}
}

// WithActualColumn sets the observed time column.
func WithActualColumn(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.actualCol = name
		}
	}
}

// WithDeviationColumn names the derived column. An existing column of that
// name is replaced in the augmented dataset, unless it is the identifier,
// nominal or actual column, which Analyze rejects with ErrColumnConflict.
func WithDeviationColumn(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.deviationCol = name
		}
	}
}

// WithTimeUnit sets the unit deviations are expressed in when both time
// columns hold timestamps. Numeric columns are subtracted as is.
func WithTimeUnit(unit time.Duration) Option {
	return func(a *Analyzer) {
		if unit > 0 {
			a.unit = unit
		}
	}
}

// WithShowPlot toggles the deviation histogram and boxplot.
func WithShowPlot(show bool) Option {
	return func(a *Analyzer) {
		a.showPlot = show
	}
}

// WithRenderer sets the plotting collaborator.
func WithRenderer(r render.Renderer) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.renderer = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}
