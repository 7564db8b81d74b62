// Package participation summarises who was observed when in a longitudinal
// dataset: subjects per time point, visits per subject and the presence matrix.
package participation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/ida/internal/domain/aggregate"
	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// Default column names.
const (
	DefaultIDColumn   = "subject_id"
	DefaultTimeColumn = "time_point"
)

// Derived column names used by the tables.
const (
	SubjectsColumn = "n_subjects"
	VisitsColumn   = "n_visits"
)

// TimeCount is the number of distinct subjects seen at a time point.
type TimeCount struct {
	Time     dataset.Value `json:"time"`
	Subjects int           `json:"subjects"`
}

// SubjectCount is the number of distinct time points a subject attended.
type SubjectCount struct {
	Subject dataset.Value `json:"subject"`
	Visits  int           `json:"visits"`
}

// Summary bundles the participation tables and the presence matrix.
type Summary struct {
	IDColumn   string `json:"id_column"`
	TimeColumn string `json:"time_column"`

	// SubjectsPerTime is ordered by time ascending.
	SubjectsPerTime []TimeCount `json:"subjects_per_time"`
	// VisitsPerSubject is ordered by subject ascending.
	VisitsPerSubject []SubjectCount `json:"visits_per_subject"`
	Matrix           *Matrix        `json:"matrix"`

	TotalSubjects        int     `json:"total_subjects"`
	TotalTimePoints      int     `json:"total_time_points"`
	MeanVisitsPerSubject float64 `json:"mean_visits_per_subject"`
	MinVisitsPerSubject  int     `json:"min_visits_per_subject"`
	MaxVisitsPerSubject  int     `json:"max_visits_per_subject"`

	// SkippedRows counts rows with a null subject or time.
	SkippedRows int `json:"skipped_rows"`
}

// Summarizer computes participation summaries. It holds configuration only
// and is safe to reuse.
type Summarizer struct {
	idCol    string
	timeCol  string
	showPlot bool
	renderer render.Renderer
	logger   logger.Logger
}

// NewSummarizer creates a Summarizer. Plotting is on by default but the
// default renderer discards everything.
func NewSummarizer(opts ...Option) *Summarizer {
	s := &Summarizer{
		idCol:    DefaultIDColumn,
		timeCol:  DefaultTimeColumn,
		showPlot: true,
		renderer: render.Discard,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema declares the columns Describe consumes.
func (s *Summarizer) Schema() dataset.Schema {
	return dataset.Schema{
		{Column: s.idCol, Role: dataset.RoleIdentifier},
		{Column: s.timeCol, Role: dataset.RoleOrderable},
	}
}

// Describe computes the participation summary of ds. The schema is checked
// before any aggregation or plotting.
func (s *Summarizer) Describe(ctx context.Context, ds *dataset.Dataset) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Schema().Validate(ds); err != nil {
		return nil, err
	}
	ids, _ := ds.Values(s.idCol)
	times, _ := ds.Values(s.timeCol)

	rows := make([]int, 0, ds.Len())
	for i := range ds.Len() {
		if ids[i].IsNull() || times[i].IsNull() {
			continue
		}
		rows = append(rows, i)
	}

	byTime := aggregate.GroupRows(times, rows)
	bySubject := aggregate.GroupRows(ids, rows)

	sum := &Summary{
		IDColumn:         s.idCol,
		TimeColumn:       s.timeCol,
		SubjectsPerTime:  make([]TimeCount, len(byTime)),
		VisitsPerSubject: make([]SubjectCount, len(bySubject)),
		TotalSubjects:    len(bySubject),
		TotalTimePoints:  len(byTime),
		SkippedRows:      ds.Len() - len(rows),
	}
	for i, g := range byTime {
		sum.SubjectsPerTime[i] = TimeCount{Time: g.Key, Subjects: aggregate.CountDistinct(ids, g.Rows)}
	}
	visits := make([]float64, len(bySubject))
	for i, g := range bySubject {
		n := aggregate.CountDistinct(times, g.Rows)
		sum.VisitsPerSubject[i] = SubjectCount{Subject: g.Key, Visits: n}
		visits[i] = float64(n)
	}
	st := aggregate.Describe(visits)
	sum.MeanVisitsPerSubject = st.Mean
	if st.Count > 0 {
		sum.MinVisitsPerSubject = int(st.Min)
		sum.MaxVisitsPerSubject = int(st.Max)
	}

	m := &Matrix{
		subjects: aggregate.Keys(bySubject),
		times:    aggregate.Keys(byTime),
		present:  make(map[pair]struct{}, len(rows)),
	}
	for _, i := range rows {
		m.present[pair{subject: ids[i], time: times[i]}] = struct{}{}
	}
	sum.Matrix = m

	s.logger.Debug(ctx, "participation summarised",
		logger.Int("rows", ds.Len()),
		logger.Int("subjects", sum.TotalSubjects),
		logger.Int("time_points", sum.TotalTimePoints),
		logger.Int("skipped_rows", sum.SkippedRows),
	)

	if s.showPlot {
		s.plot(ctx, sum, visits)
	}
	return sum, nil
}

func (s *Summarizer) plot(ctx context.Context, sum *Summary, visits []float64) {
	render.Safe(ctx, s.logger, "heatmap", func() error {
		return s.renderer.Heatmap(ctx, render.Figure{
			Name:   "participation_heatmap",
			Title:  "Participation heatmap (subjects x time points)",
			XLabel: sum.TimeColumn,
			YLabel: sum.IDColumn,
		}, sum.Grid())
	})
	render.Safe(ctx, s.logger, "histogram", func() error {
		return s.renderer.Histogram(ctx, render.Figure{
			Name:   "visits_per_subject",
			Title:  "Visits per subject",
			XLabel: "visits",
			YLabel: "subjects",
		}, visits)
	})
	render.Safe(ctx, s.logger, "bar", func() error {
		labels := make([]string, len(sum.SubjectsPerTime))
		heights := make([]float64, len(sum.SubjectsPerTime))
		for i, tc := range sum.SubjectsPerTime {
			labels[i] = tc.Time.String()
			heights[i] = float64(tc.Subjects)
		}
		return s.renderer.Bar(ctx, render.Figure{
			Name:   "subjects_per_time_point",
			Title:  "Subjects per time point",
			XLabel: sum.TimeColumn,
			YLabel: "subjects",
		}, labels, heights)
	})
}

// Grid renders the matrix as 0/1 cells for display.
func (sum *Summary) Grid() render.Grid {
	g := render.Grid{
		Rows:  labels(sum.Matrix.subjects),
		Cols:  labels(sum.Matrix.times),
		Cells: make([][]float64, len(sum.Matrix.subjects)),
	}
	for i, row := range sum.Matrix.Dense() {
		g.Cells[i] = make([]float64, len(row))
		for j, ok := range row {
			if ok {
				g.Cells[i][j] = 1
			}
		}
	}
	return g
}

// SubjectsPerTimeTable returns (time, n_subjects) as a dataset.
func (sum *Summary) SubjectsPerTimeTable() (*dataset.Dataset, error) {
	keys := make([]dataset.Value, len(sum.SubjectsPerTime))
	counts := make([]dataset.Value, len(sum.SubjectsPerTime))
	for i, tc := range sum.SubjectsPerTime {
		keys[i] = tc.Time
		counts[i] = dataset.Int(tc.Subjects)
	}
	return dataset.New(
		dataset.Column{Name: sum.TimeColumn, Values: keys},
		dataset.Column{Name: SubjectsColumn, Values: counts},
	)
}

// VisitsPerSubjectTable returns (subject, n_visits) as a dataset.
func (sum *Summary) VisitsPerSubjectTable() (*dataset.Dataset, error) {
	keys := make([]dataset.Value, len(sum.VisitsPerSubject))
	counts := make([]dataset.Value, len(sum.VisitsPerSubject))
	for i, sc := range sum.VisitsPerSubject {
		keys[i] = sc.Subject
		counts[i] = dataset.Int(sc.Visits)
	}
	return dataset.New(
		dataset.Column{Name: sum.IDColumn, Values: keys},
		dataset.Column{Name: VisitsColumn, Values: counts},
	)
}

// MatrixTable returns the dense matrix with one 0/1 column per time point.
func (sum *Summary) MatrixTable() (*dataset.Dataset, error) {
	g := sum.Grid()
	cols := make([]dataset.Column, 0, len(g.Cols)+1)
	cols = append(cols, dataset.Column{Name: sum.IDColumn, Values: sum.Matrix.Subjects()})
	for j, name := range g.Cols {
		vs := make([]dataset.Value, len(g.Rows))
		for i := range g.Rows {
			vs[i] = dataset.Number(g.Cells[i][j])
		}
		cols = append(cols, dataset.Column{Name: name, Values: vs})
	}
	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("participation matrix: %w", err)
	}
	return ds, nil
}

func labels(vs []dataset.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

// MarshalJSON encodes an undefined mean as null and adds the matrix size.
func (sum *Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	var mean *float64
	if m := sum.MeanVisitsPerSubject; !math.IsNaN(m) && !math.IsInf(m, 0) {
		mean = &m
	}
	cells := 0
	if sum.Matrix != nil {
		cells = sum.Matrix.Cells()
	}
	return json.Marshal(struct {
		*plain
		MeanVisitsPerSubject *float64 `json:"mean_visits_per_subject"`
		MatrixCells          int      `json:"matrix_cells"`
	}{(*plain)(sum), mean, cells})
}
