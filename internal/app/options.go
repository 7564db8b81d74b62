package service

import (
	"time"

	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithColumns sets the default column names. Empty fields keep the defaults.
func WithColumns(c Columns) Option {
	return func(s *Service) {
		s.columns = c.merge(s.columns)
	}
}

// WithVariables sets the default structural and outcome variables.
func WithVariables(structural, outcomes []string) Option {
	return func(s *Service) {
		s.structural = append([]string(nil), structural...)
		s.outcomes = append([]string(nil), outcomes...)
	}
}

// WithShowPlot toggles plotting for every analysis.
func WithShowPlot(show bool) Option {
	return func(s *Service) {
		s.showPlot = show
	}
}

// WithDeviationUnit sets the unit of timestamp deviations.
func WithDeviationUnit(unit time.Duration) Option {
	return func(s *Service) {
		if unit > 0 {
			s.unit = unit
		}
	}
}

// WithRenderer uses r for every run.
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.newRenderer = func(string) render.Renderer { return r }
		}
	}
}

// WithPlotFiles renders plots to files; each run's files are prefixed with
// its run id so concurrent runs never overwrite each other.
func WithPlotFiles(opts ...render.Option) Option {
	return func(s *Service) {
		s.newRenderer = func(runID string) render.Renderer {
			return render.NewPlotRenderer(append(opts[:len(opts):len(opts)], render.WithPrefix(runID+"_"))...)
		}
	}
}
