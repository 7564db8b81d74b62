// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and IDA_ environment variables.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address of `ida serve`, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Column names used unless a request or flag overrides them.
	IDColumn      string `koanf:"id_col"`
	TimeColumn    string `koanf:"time_col"`
	NominalColumn string `koanf:"nominal_col"`
	ActualColumn  string `koanf:"actual_col"`

	// StructuralVars and OutcomeVars are the default variable lists of the
	// structure analysis. Env values are comma separated.
	StructuralVars []string `koanf:"structural_vars"`
	OutcomeVars    []string `koanf:"outcome_vars"`

	// ShowPlot enables plot rendering.
	ShowPlot bool `koanf:"show_plot"`

	// PlotDir, PlotFormat and the size fields configure the file renderer.
	PlotDir      string  `koanf:"plot_dir"`
	PlotFormat   string  `koanf:"plot_format"`
	PlotWidthCM  float64 `koanf:"plot_width_cm"`
	PlotHeightCM float64 `koanf:"plot_height_cm"`

	// HistogramBins sets the bin count of every histogram.
	HistogramBins int `koanf:"histogram_bins"`

	// DeviationUnit is the unit of deviations between two timestamp columns.
	DeviationUnit time.Duration `koanf:"deviation_unit"`

	// OutDir receives result tables and report.json; empty disables writing.
	OutDir string `koanf:"out_dir"`

	// TableFormat is csv or xlsx.
	TableFormat string `koanf:"table_format"`

	// Sheet names the workbook sheet to read from xlsx input.
	Sheet string `koanf:"sheet"`

	// MetricsTextfile, when set, receives the metrics registry after a CLI run.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// MaxUploadBytes caps HTTP request bodies.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		IDColumn:       "subject_id",
		TimeColumn:     "time_point",
		NominalColumn:  "nominal_time",
		ActualColumn:   "actual_time",
		ShowPlot:       false,
		PlotDir:        "plots",
		PlotFormat:     "png",
		PlotWidthCM:    24,
		PlotHeightCM:   16,
		HistogramBins:  20,
		DeviationUnit:  24 * time.Hour,
		TableFormat:    "csv",
		MaxUploadBytes: 32 << 20,
	}
}

var (
	logLevels    = []string{"debug", "info", "warn", "warning", "error"}
	logFormats   = []string{"text", "json"}
	plotFormats  = []string{"png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff"}
	tableFormats = []string{"csv", "xlsx"}
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains(logLevels, strings.ToLower(c.LogLevel)):
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	case !slices.Contains(logFormats, strings.ToLower(c.LogFormat)):
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.IDColumn == "" || c.TimeColumn == "" || c.NominalColumn == "" || c.ActualColumn == "":
		return fmt.Errorf("%w: column names must not be empty", ErrInvalidConfig)
	case !slices.Contains(plotFormats, strings.ToLower(c.PlotFormat)):
		return fmt.Errorf("%w: unknown plot_format %q", ErrInvalidConfig, c.PlotFormat)
	case c.PlotWidthCM <= 0 || c.PlotHeightCM <= 0:
		return fmt.Errorf("%w: plot size must be positive", ErrInvalidConfig)
	case c.HistogramBins <= 0:
		return fmt.Errorf("%w: histogram_bins must be positive", ErrInvalidConfig)
	case c.DeviationUnit <= 0:
		return fmt.Errorf("%w: deviation_unit must be positive", ErrInvalidConfig)
	case !slices.Contains(tableFormats, strings.ToLower(c.TableFormat)):
		return fmt.Errorf("%w: unknown table_format %q", ErrInvalidConfig, c.TableFormat)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
