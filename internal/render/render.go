// Package render defines the plotting collaborator used by the analyses.
// Analyses never inspect what a renderer produces; they only call it when
// plotting is enabled and tolerate its failures.
package render

import "context"

// Figure names and labels one plot.
type Figure struct {
	// Name is a file-safe identifier, e.g. "participation_heatmap".
	Name   string
	Title  string
	XLabel string
	YLabel string
}

// Grid is a dense row x column matrix with axis labels.
type Grid struct {
	Rows  []string
	Cols  []string
	Cells [][]float64
}

// Category is one box of a boxplot.
type Category struct {
	Label  string
	Values []float64
}

// Renderer draws plots.
type Renderer interface {
	Heatmap(ctx context.Context, fig Figure, g Grid) error
	Histogram(ctx context.Context, fig Figure, values []float64) error
	Bar(ctx context.Context, fig Figure, labels []string, heights []float64) error
	Boxplot(ctx context.Context, fig Figure, groups []Category) error
}

// Discard is a Renderer that draws nothing.
var Discard Renderer = discard{}

type discard struct{}

func (discard) Heatmap(context.Context, Figure, Grid) error            { return nil }
func (discard) Histogram(context.Context, Figure, []float64) error     { return nil }
func (discard) Bar(context.Context, Figure, []string, []float64) error { return nil }
func (discard) Boxplot(context.Context, Figure, []Category) error      { return nil }
