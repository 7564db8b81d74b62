package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default plot settings.
const (
	defaultDir    = "plots"
	defaultFormat = "png"
	defaultBins   = 20
	dirPermission = 0o750
	barWidth      = 12
	boxWidth      = 20
)

// PlotRenderer writes each figure to its own file using gonum/plot.
// It needs no display, so it works in headless runs.
type PlotRenderer struct {
	dir    string
	format string
	prefix string
	width  vg.Length
	height vg.Length
	bins   int
}

var _ Renderer = (*PlotRenderer)(nil)

// NewPlotRenderer creates a file-backed renderer.
func NewPlotRenderer(opts ...Option) *PlotRenderer {
	r := &PlotRenderer{
		dir:    defaultDir,
		format: defaultFormat,
		width:  24 * vg.Centimeter,
		height: 16 * vg.Centimeter,
		bins:   defaultBins,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the file a figure is written to.
func (r *PlotRenderer) Path(fig Figure) string {
	return filepath.Join(r.dir, r.prefix+fig.Name+"."+strings.ToLower(r.format))
}

// Heatmap draws g as a two-tone presence map.
func (r *PlotRenderer) Heatmap(ctx context.Context, fig Figure, g Grid) error {
	if len(g.Rows) == 0 || len(g.Cols) == 0 {
		return fmt.Errorf("%w: empty grid", ErrNothingToDraw)
	}
	p := r.newPlot(fig)
	hm := plotter.NewHeatMap(gridXYZ(g), presencePalette{})
	hm.Min, hm.Max = 0, 1
	p.Add(hm)
	p.NominalX(g.Cols...)
	p.NominalY(g.Rows...)
	return r.save(ctx, p, fig)
}

// Histogram draws the distribution of the finite values.
func (r *PlotRenderer) Histogram(ctx context.Context, fig Figure, values []float64) error {
	vs := finiteValues(values)
	if len(vs) == 0 {
		return fmt.Errorf("%w: no finite values", ErrNothingToDraw)
	}
	p := r.newPlot(fig)
	h, err := plotter.NewHist(vs, r.bins)
	if err != nil {
		return fmt.Errorf("%w: histogram: %w", ErrDraw, err)
	}
	p.Add(h)
	return r.save(ctx, p, fig)
}

// Bar draws one bar per label.
func (r *PlotRenderer) Bar(ctx context.Context, fig Figure, labels []string, heights []float64) error {
	if len(heights) == 0 {
		return fmt.Errorf("%w: no bars", ErrNothingToDraw)
	}
	if len(labels) != len(heights) {
		return fmt.Errorf("%w: %d labels for %d bars", ErrDraw, len(labels), len(heights))
	}
	p := r.newPlot(fig)
	bars, err := plotter.NewBarChart(plotter.Values(heights), vg.Points(barWidth))
	if err != nil {
		return fmt.Errorf("%w: bar chart: %w", ErrDraw, err)
	}
	bars.Color = color.RGBA{R: 0x31, G: 0x82, B: 0xbd, A: 0xff}
	p.Add(bars)
	p.NominalX(labels...)
	return r.save(ctx, p, fig)
}

// Boxplot draws one box per non-empty category.
func (r *PlotRenderer) Boxplot(ctx context.Context, fig Figure, groups []Category) error {
	p := r.newPlot(fig)
	var labels []string
	for _, g := range groups {
		vs := finiteValues(g.Values)
		if len(vs) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(boxWidth), float64(len(labels)), vs)
		if err != nil {
			return fmt.Errorf("%w: box %q: %w", ErrDraw, g.Label, err)
		}
		p.Add(box)
		labels = append(labels, g.Label)
	}
	if len(labels) == 0 {
		return fmt.Errorf("%w: no non-empty groups", ErrNothingToDraw)
	}
	p.NominalX(labels...)
	return r.save(ctx, p, fig)
}

func (r *PlotRenderer) newPlot(fig Figure) *plot.Plot {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	return p
}

func (r *PlotRenderer) save(ctx context.Context, p *plot.Plot, fig Figure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, dirPermission); err != nil {
		return fmt.Errorf("%w: create plot dir: %w", ErrDraw, err)
	}
	if err := p.Save(r.width, r.height, r.Path(fig)); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrDraw, fig.Name, err)
	}
	return nil
}

func finiteValues(xs []float64) plotter.Values {
	vs := make(plotter.Values, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			vs = append(vs, x)
		}
	}
	return vs
}

// gridXYZ adapts a Grid to plotter.GridXYZ; columns map to x, rows to y.
type gridXYZ Grid

func (g gridXYZ) Dims() (c, r int)   { return len(g.Cols), len(g.Rows) }
func (g gridXYZ) Z(c, r int) float64 { return g.Cells[r][c] }
func (g gridXYZ) X(c int) float64    { return float64(c) }
func (g gridXYZ) Y(r int) float64    { return float64(r) }

type presencePalette struct{}

func (presencePalette) Colors() []color.Color {
	return []color.Color{
		color.RGBA{R: 0xf7, G: 0xfb, B: 0xff, A: 0xff},
		color.RGBA{R: 0x08, G: 0x51, B: 0x9c, A: 0xff},
	}
}
