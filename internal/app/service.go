// Package service wires the analyses, rendering, logging and metrics into
// the runs served by the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/domain/deviation"
	"github.com/okian/ida/internal/domain/participation"
	"github.com/okian/ida/internal/domain/structure"
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
	"github.com/okian/ida/pkg/metrics"

	"github.com/google/uuid"
)

// Analysis names one of the three analyses.
type Analysis string

// Supported analyses, in the order Run executes them.
const (
	AnalysisParticipation Analysis = "participation"
	AnalysisDeviation     Analysis = "deviation"
	AnalysisStructure     Analysis = "structure"
)

// ParseAnalysis resolves a name to an Analysis.
func ParseAnalysis(name string) (Analysis, error) {
	switch a := Analysis(name); a {
	case AnalysisParticipation, AnalysisDeviation, AnalysisStructure:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAnalysis, name)
	}
}

// Columns names the input columns of a run.
type Columns struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Nominal   string `json:"nominal"`
	Actual    string `json:"actual"`
	Deviation string `json:"deviation"`
}

// merge fills empty fields of c from base.
func (c Columns) merge(base Columns) Columns {
	pick := func(v, d string) string {
		if v != "" {
			return v
		}
		return d
	}
	return Columns{
		ID:        pick(c.ID, base.ID),
		Time:      pick(c.Time, base.Time),
		Nominal:   pick(c.Nominal, base.Nominal),
		Actual:    pick(c.Actual, base.Actual),
		Deviation: pick(c.Deviation, base.Deviation),
	}
}

// Plan selects the analyses of a run. Empty fields fall back to the
// service defaults.
type Plan struct {
	Analyses   []Analysis
	Columns    Columns
	Structural []string
	Outcomes   []string
}

// Service runs analyses. It keeps only run counters between calls.
type Service struct {
	mu sync.RWMutex

	// Configuration
	columns     Columns
	structural  []string
	outcomes    []string
	showPlot    bool
	unit        time.Duration
	newRenderer func(runID string) render.Renderer

	// State
	runs      int64
	failures  int64
	lastRunID string
	lastRunAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		columns: Columns{
			ID:        participation.DefaultIDColumn,
			Time:      participation.DefaultTimeColumn,
			Nominal:   deviation.DefaultNominalColumn,
			Actual:    deviation.DefaultActualColumn,
			Deviation: deviation.DefaultDeviationColumn,
		},
		unit:        deviation.DefaultTimeUnit,
		newRenderer: func(string) render.Renderer { return render.Discard },
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes plan against ds and returns the report. The first failing
// analysis aborts the run.
func (s *Service) Run(ctx context.Context, ds *dataset.Dataset, plan Plan) (*Report, error) {
	if len(plan.Analyses) == 0 {
		return nil, ErrNoAnalyses
	}
	cols := plan.Columns.merge(s.columns)
	structural, outcomes := plan.Structural, plan.Outcomes
	if len(structural) == 0 {
		structural = s.structural
	}
	if len(outcomes) == 0 {
		outcomes = s.outcomes
	}

	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Rows:      ds.Len(),
		Columns:   ds.Names(),
	}
	log := s.logger.Named("run")
	renderer := s.newRenderer(rep.RunID)
	log.Info(ctx, "run started",
		logger.String("run_id", rep.RunID),
		logger.Int("rows", rep.Rows),
		logger.Any("analyses", plan.Analyses),
	)

	err := s.execute(ctx, ds, plan.Analyses, rep, func(a Analysis) error {
		switch a {
		case AnalysisParticipation:
			sum, err := participation.NewSummarizer(
				participation.WithIDColumn(cols.ID),
				participation.WithTimeColumn(cols.Time),
				participation.WithShowPlot(s.showPlot),
				participation.WithRenderer(renderer),
				participation.WithLogger(log.Named(string(a))),
			).Describe(ctx, ds)
			rep.Participation = sum
			return err
		case AnalysisDeviation:
			res, err := deviation.NewAnalyzer(
				deviation.WithIDColumn(cols.ID),
				deviation.WithNominalColumn(cols.Nominal),
				deviation.WithActualColumn(cols.Actual),
				deviation.WithDeviationColumn(cols.Deviation),
				deviation.WithTimeUnit(s.unit),
				deviation.WithShowPlot(s.showPlot),
				deviation.WithRenderer(renderer),
				deviation.WithLogger(log.Named(string(a))),
			).Analyze(ctx, ds)
			rep.Deviation = res
			return err
		case AnalysisStructure:
			sum, err := structure.NewSummarizer(
				structure.WithIDColumn(cols.ID),
				structure.WithShowPlot(s.showPlot),
				structure.WithRenderer(renderer),
				structure.WithLogger(log.Named(string(a))),
			).Summarize(ctx, ds, structural, outcomes)
			rep.Structure = sum
			return err
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAnalysis, a)
		}
	})
	rep.Duration = time.Since(rep.StartedAt)

	s.mu.Lock()
	s.runs++
	if err != nil {
		s.failures++
	}
	s.lastRunID, s.lastRunAt = rep.RunID, rep.StartedAt
	s.mu.Unlock()

	if err != nil {
		log.Warn(ctx, "run failed", logger.String("run_id", rep.RunID), logger.Error(err))
		return nil, err
	}
	log.Info(ctx, "run finished",
		logger.String("run_id", rep.RunID),
		logger.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// execute runs each analysis once, in plan order, recording metrics.
func (s *Service) execute(ctx context.Context, ds *dataset.Dataset, analyses []Analysis, rep *Report, run func(Analysis) error) error {
	done := make(map[Analysis]bool, len(analyses))
	for _, a := range analyses {
		if done[a] {
			continue
		}
		done[a] = true
		start := time.Now()
		if err := run(a); err != nil {
			metrics.RecordAnalysisError(string(a), ErrorKind(err))
			return fmt.Errorf("%s: %w", a, err)
		}
		metrics.RecordAnalysis(string(a), ds.Len(), time.Since(start))
		rep.Analyses = append(rep.Analyses, a)
	}
	return nil
}

// Participation runs the participation analysis alone.
func (s *Service) Participation(ctx context.Context, ds *dataset.Dataset, cols Columns) (*participation.Summary, error) {
	rep, err := s.Run(ctx, ds, Plan{Analyses: []Analysis{AnalysisParticipation}, Columns: cols})
	if err != nil {
		return nil, err
	}
	return rep.Participation, nil
}

// Deviation runs the time deviation analysis alone.
func (s *Service) Deviation(ctx context.Context, ds *dataset.Dataset, cols Columns) (*deviation.Result, error) {
	rep, err := s.Run(ctx, ds, Plan{Analyses: []Analysis{AnalysisDeviation}, Columns: cols})
	if err != nil {
		return nil, err
	}
	return rep.Deviation, nil
}

// Structure runs the structural group analysis alone.
func (s *Service) Structure(ctx context.Context, ds *dataset.Dataset, cols Columns, structural, outcomes []string) (*structure.Summary, error) {
	rep, err := s.Run(ctx, ds, Plan{
		Analyses:   []Analysis{AnalysisStructure},
		Columns:    cols,
		Structural: structural,
		Outcomes:   outcomes,
	})
	if err != nil {
		return nil, err
	}
	return rep.Structure, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":      s.runs,
		"failures":  s.failures,
		"show_plot": s.showPlot,
		"columns":   s.columns,
	}
	if s.lastRunID != "" {
		stats["last_run_id"] = s.lastRunID
		stats["last_run_at"] = s.lastRunAt.Format(time.RFC3339)
	}
	return stats
}

// ErrorKind classifies err for metrics labels and API error codes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dataset.ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, dataset.ErrType):
		return "type_error"
	case errors.Is(err, structure.ErrNoVariables):
		return "no_variables"
	case errors.Is(err, deviation.ErrColumnConflict):
		return "column_conflict"
	case errors.Is(err, ErrUnknownAnalysis), errors.Is(err, ErrNoAnalyses):
		return "bad_plan"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
