package participation

import (
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// Option applies a configuration option to the Summarizer.
type Option func(*Summarizer)

// WithIDColumn sets the subject identifier column.
func WithIDColumn(name string) Option {
	return func(s *Summarizer) {
		if name != "" {
			s.idCol = name
		}
	}
}

// WithTimeColumn sets the time point column.
func WithTimeColumn(name string) Option {
	return func(s *Summarizer) {
		if name != "" {
			s.timeCol = name
		}
	}
}

// WithShowPlot toggles the heatmap, histogram and bar chart.
func WithShowPlot(show bool) Option {
	return func(s *Summarizer) {
		s.showPlot = show
	}
}

// WithRenderer sets the plotting collaborator.
func WithRenderer(r render.Renderer) Option {
	return func(s *Summarizer) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}
