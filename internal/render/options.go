package render

import "gonum.org/v1/plot/vg"

// Option applies a configuration option to the PlotRenderer.
type Option func(*PlotRenderer)

// WithDir sets the output directory for plot files.
func WithDir(dir string) Option {
	return func(r *PlotRenderer) {
		if dir != "" {
			r.dir = dir
		}
	}
}

// WithFormat sets the file format: png, svg, pdf, eps, jpg or tif.
func WithFormat(format string) Option {
	return func(r *PlotRenderer) {
		if format != "" {
			r.format = format
		}
	}
}

// WithSizeCM sets the page size in centimetres.
func WithSizeCM(width, height float64) Option {
	return func(r *PlotRenderer) {
		if width > 0 && height > 0 {
			r.width = vg.Length(width) * vg.Centimeter
			r.height = vg.Length(height) * vg.Centimeter
		}
	}
}

// WithBins sets the number of histogram bins.
func WithBins(bins int) Option {
	return func(r *PlotRenderer) {
		if bins > 0 {
			r.bins = bins
		}
	}
}

// WithPrefix prefixes every file name, e.g. with a run id.
func WithPrefix(prefix string) Option {
	return func(r *PlotRenderer) {
		r.prefix = prefix
	}
}
