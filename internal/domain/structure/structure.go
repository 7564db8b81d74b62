// Package structure summarises numeric outcomes across the categories of
// structural variables such as sex or study centre.
package structure

import (
	"context"
	"fmt"

	"github.com/okian/ida/internal/domain/aggregate"
	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// DefaultIDColumn is the subject identifier used unless overridden.
const DefaultIDColumn = "subject_id"

// Derived column names used by GroupSummary.Table.
const (
	SizeColumn     = "n_rows"
	SubjectsColumn = "n_subjects"
)

// OutcomeStats is the summary of one outcome inside one group.
type OutcomeStats struct {
	Outcome string          `json:"outcome"`
	Stats   aggregate.Stats `json:"stats"`
}

// Group is one distinct value of a structural variable.
type Group struct {
	Value    dataset.Value  `json:"value"`
	Size     int            `json:"size"`
	Subjects int            `json:"subjects"`
	Outcomes []OutcomeStats `json:"outcomes"`
}

// GroupSummary holds the groups of a single structural variable, ascending
// by value.
type GroupSummary struct {
	Variable string   `json:"variable"`
	Outcomes []string `json:"outcomes"`
	Groups   []Group  `json:"groups"`
	// SkippedRows counts rows whose structural value is null.
	SkippedRows int `json:"skipped_rows"`
}

// Summary is the ordered collection of per-variable summaries.
type Summary struct {
	IDColumn string          `json:"id_column"`
	Entries  []*GroupSummary `json:"entries"`
}

// Get returns the summary of the named structural variable.
func (s *Summary) Get(name string) (*GroupSummary, bool) {
	for _, e := range s.Entries {
		if e.Variable == name {
			return e, true
		}
	}
	return nil, false
}

// Variables returns the structural variable names in output order.
func (s *Summary) Variables() []string {
	out := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Variable
	}
	return out
}

// Summarizer computes group summaries. It holds configuration only.
type Summarizer struct {
	idCol    string
	showPlot bool
	renderer render.Renderer
	logger   logger.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(opts ...Option) *Summarizer {
	s := &Summarizer{
		idCol:    DefaultIDColumn,
		showPlot: true,
		renderer: render.Discard,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema declares the columns Summarize consumes for the given variables.
func (s *Summarizer) Schema(structural, outcomes []string) dataset.Schema {
	schema := dataset.Schema{{Column: s.idCol, Role: dataset.RoleIdentifier}}
	for _, v := range structural {
		schema = append(schema, dataset.Requirement{Column: v, Role: dataset.RoleCategorical})
	}
	for _, v := range outcomes {
		schema = append(schema, dataset.Requirement{Column: v, Role: dataset.RoleNumeric})
	}
	return schema
}

// Summarize groups ds by each structural variable on its own and describes
// every outcome within each group. Entries follow the order of structural;
// a name listed twice is summarised once.
func (s *Summarizer) Summarize(ctx context.Context, ds *dataset.Dataset, structural, outcomes []string) (*Summary, error) {
	if len(structural) == 0 || len(outcomes) == 0 {
		return nil, ErrNoVariables
	}
	structural, outcomes = unique(structural), unique(outcomes)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Schema(structural, outcomes).Validate(ds); err != nil {
		return nil, err
	}
	ids, _ := ds.Values(s.idCol)
	series := make(map[string][]float64, len(outcomes))
	for _, o := range outcomes {
		col, _ := ds.Column(o)
		series[o] = col.Floats()
	}

	sum := &Summary{IDColumn: s.idCol, Entries: make([]*GroupSummary, 0, len(structural))}
	for _, v := range structural {
		keys, _ := ds.Values(v)
		groups := aggregate.GroupBy(keys)
		gs := &GroupSummary{
			Variable: v,
			Outcomes: append([]string(nil), outcomes...),
			Groups:   make([]Group, len(groups)),
		}
		grouped := 0
		for i, g := range groups {
			row := Group{
				Value:    g.Key,
				Size:     len(g.Rows),
				Subjects: aggregate.CountDistinct(ids, g.Rows),
				Outcomes: make([]OutcomeStats, len(outcomes)),
			}
			for j, o := range outcomes {
				row.Outcomes[j] = OutcomeStats{Outcome: o, Stats: aggregate.Describe(aggregate.Pick(series[o], g.Rows))}
			}
			gs.Groups[i] = row
			grouped += len(g.Rows)
		}
		gs.SkippedRows = ds.Len() - grouped
		sum.Entries = append(sum.Entries, gs)

		s.logger.Debug(ctx, "structural variable summarised",
			logger.String("variable", v),
			logger.Int("groups", len(gs.Groups)),
			logger.Int("skipped_rows", gs.SkippedRows),
		)

		if s.showPlot {
			s.plot(ctx, v, groups, outcomes, series)
		}
	}
	return sum, nil
}

// unique drops repeated names, keeping the first occurrence.
func unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s *Summarizer) plot(ctx context.Context, variable string, groups []aggregate.Group, outcomes []string, series map[string][]float64) {
	for _, o := range outcomes {
		render.Safe(ctx, s.logger, "boxplot", func() error {
			cats := make([]render.Category, len(groups))
			for i, g := range groups {
				cats[i] = render.Category{Label: g.Key.String(), Values: aggregate.Pick(series[o], g.Rows)}
			}
			return s.renderer.Boxplot(ctx, render.Figure{
				Name:   fmt.Sprintf("%s_by_%s", o, variable),
				Title:  fmt.Sprintf("%s by %s", o, variable),
				XLabel: variable,
				YLabel: o,
			}, cats)
		})
	}
}

// Table lays the summary out with one row per group: the structural value,
// group size, distinct subjects, then count/mean/std/min/max per outcome
// prefixed with the outcome name.
func (g *GroupSummary) Table() (*dataset.Dataset, error) {
	keys := make([]dataset.Value, len(g.Groups))
	sizes := make([]dataset.Value, len(g.Groups))
	subjects := make([]dataset.Value, len(g.Groups))
	for i, row := range g.Groups {
		keys[i] = row.Value
		sizes[i] = dataset.Int(row.Size)
		subjects[i] = dataset.Int(row.Subjects)
	}
	cols := []dataset.Column{
		{Name: g.Variable, Values: keys},
		{Name: SizeColumn, Values: sizes},
		{Name: SubjectsColumn, Values: subjects},
	}
	for j, o := range g.Outcomes {
		stats := make([]aggregate.Stats, len(g.Groups))
		for i, row := range g.Groups {
			stats[i] = row.Outcomes[j].Stats
		}
		cols = append(cols, aggregate.StatsColumns(o+"_", stats)...)
	}
	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("structure table %q: %w", g.Variable, err)
	}
	return ds, nil
}
