// Package deviation measures how far observed times drift from planned ones.
package deviation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/ida/internal/domain/aggregate"
	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
)

// Default column names and time unit.
const (
	DefaultIDColumn        = "subject_id"
	DefaultNominalColumn   = "nominal_time"
	DefaultActualColumn    = "actual_time"
	DefaultDeviationColumn = "deviation"
	DefaultTimeUnit        = 24 * time.Hour
)

// NominalStats is the deviation summary of one planned time point.
type NominalStats struct {
	Nominal dataset.Value   `json:"nominal"`
	Stats   aggregate.Stats `json:"stats"`
}

// Result holds the three outputs of Analyze. They share no storage.
type Result struct {
	NominalColumn   string `json:"nominal_column"`
	DeviationColumn string `json:"deviation_column"`

	// Augmented is the input with the deviation column added, row for row.
	Augmented *dataset.Dataset `json:"augmented"`
	// Global summarises every non-null deviation.
	Global aggregate.Stats `json:"global"`
	// PerNominal has one entry per distinct non-null nominal time, ascending.
	PerNominal []NominalStats `json:"per_nominal"`
}

// Analyzer computes time deviations. It holds configuration only.
type Analyzer struct {
	idCol        string
	nominalCol   string
	actualCol    string
	deviationCol string
	unit         time.Duration
	showPlot     bool
	renderer     render.Renderer
	logger       logger.Logger
}

// NewAnalyzer creates an Analyzer with default column names.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		idCol:        DefaultIDColumn,
		nominalCol:   DefaultNominalColumn,
		actualCol:    DefaultActualColumn,
		deviationCol: DefaultDeviationColumn,
		unit:         DefaultTimeUnit,
		showPlot:     true,
		renderer:     render.Discard,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schema declares the columns Analyze consumes.
func (a *Analyzer) Schema() dataset.Schema {
	return dataset.Schema{
		{Column: a.idCol, Role: dataset.RoleIdentifier},
		{Column: a.nominalCol, Role: dataset.RoleTemporal},
		{Column: a.actualCol, Role: dataset.RoleTemporal},
	}
}

// Analyze derives deviation = actual - nominal for every row and summarises
// it globally and per nominal time. Rows with a null side keep a null
// deviation; nothing is dropped or reordered.
func (a *Analyzer) Analyze(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.checkColumns(); err != nil {
		return nil, err
	}
	if err := a.Schema().Validate(ds); err != nil {
		return nil, err
	}
	nominalCol, _ := ds.Column(a.nominalCol)
	actualCol, _ := ds.Column(a.actualCol)
	nominal, actual := nominalCol.Values, actualCol.Values
	nk, ak := nominalCol.Kind(), actualCol.Kind()
	if nk != dataset.KindNull && ak != dataset.KindNull && nk != ak {
		return nil, &dataset.TypeError{Column: a.actualCol, Want: nk, Got: ak}
	}

	devs := make([]float64, ds.Len())
	values := make([]dataset.Value, ds.Len())
	for i := range ds.Len() {
		d := a.difference(nominal[i], actual[i])
		devs[i] = d
		values[i] = dataset.Number(d)
	}

	augmented, err := ds.WithColumn(dataset.Column{Name: a.deviationCol, Values: values})
	if err != nil {
		return nil, err
	}

	res := &Result{
		NominalColumn:   a.nominalCol,
		DeviationColumn: a.deviationCol,
		Augmented:       augmented,
		Global:          aggregate.Describe(devs),
	}
	groups := aggregate.GroupBy(nominal)
	res.PerNominal = make([]NominalStats, len(groups))
	for i, g := range groups {
		res.PerNominal[i] = NominalStats{Nominal: g.Key, Stats: aggregate.Describe(aggregate.Pick(devs, g.Rows))}
	}

	a.logger.Debug(ctx, "time deviation analysed",
		logger.Int("rows", ds.Len()),
		logger.Int("non_null", res.Global.Count),
		logger.Int("nominal_times", len(res.PerNominal)),
	)

	if a.showPlot {
		a.plot(ctx, devs, groups)
	}
	return res, nil
}

// checkColumns rejects a deviation column that names one of the inputs.
func (a *Analyzer) checkColumns() error {
	for _, in := range []string{a.idCol, a.nominalCol, a.actualCol} {
		if a.deviationCol == in {
			return fmt.Errorf("%w: %q", ErrColumnConflict, in)
		}
	}
	return nil
}

// difference returns actual - nominal, or NaN when either is null.
func (a *Analyzer) difference(nominal, actual dataset.Value) float64 {
	if n, ok := nominal.Float(); ok {
		if v, ok := actual.Float(); ok {
			return v - n
		}
	}
	if n, ok := nominal.Time(); ok {
		if v, ok := actual.Time(); ok {
			return float64(v.Sub(n)) / float64(a.unit)
		}
	}
	return math.NaN()
}

func (a *Analyzer) plot(ctx context.Context, devs []float64, groups []aggregate.Group) {
	render.Safe(ctx, a.logger, "histogram", func() error {
		return a.renderer.Histogram(ctx, render.Figure{
			Name:   "deviation_histogram",
			Title:  "Deviation between actual and nominal time",
			XLabel: a.deviationCol,
			YLabel: "rows",
		}, devs)
	})
	render.Safe(ctx, a.logger, "boxplot", func() error {
		cats := make([]render.Category, len(groups))
		for i, g := range groups {
			cats[i] = render.Category{Label: g.Key.String(), Values: aggregate.Pick(devs, g.Rows)}
		}
		return a.renderer.Boxplot(ctx, render.Figure{
			Name:   "deviation_by_nominal",
			Title:  "Deviation by nominal time",
			XLabel: a.nominalCol,
			YLabel: a.deviationCol,
		}, cats)
	})
}

// GlobalTable returns the global statistics as a one-row dataset.
func (r *Result) GlobalTable() (*dataset.Dataset, error) {
	return dataset.New(aggregate.StatsColumns("", []aggregate.Stats{r.Global})...)
}

// PerNominalTable returns one row per nominal time with its statistics.
func (r *Result) PerNominalTable() (*dataset.Dataset, error) {
	keys := make([]dataset.Value, len(r.PerNominal))
	stats := make([]aggregate.Stats, len(r.PerNominal))
	for i, ns := range r.PerNominal {
		keys[i] = ns.Nominal
		stats[i] = ns.Stats
	}
	cols := append([]dataset.Column{{Name: r.NominalColumn, Values: keys}}, aggregate.StatsColumns("", stats)...)
	return dataset.New(cols...)
}
