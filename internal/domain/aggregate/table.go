package aggregate

import (
	"github.com/okian/ida/internal/domain/dataset"
)

// Statistic names, in table column order.
const (
	StatCount = "count"
	StatMean  = "mean"
	StatStd   = "std"
	StatMin   = "min"
	StatMax   = "max"
)

// StatsColumns lays out one column per statistic, named prefix+statistic,
// with one row per element of stats. Undefined statistics become null.
func StatsColumns(prefix string, stats []Stats) []dataset.Column {
	count := make([]dataset.Value, len(stats))
	mean := make([]dataset.Value, len(stats))
	std := make([]dataset.Value, len(stats))
	lo := make([]dataset.Value, len(stats))
	hi := make([]dataset.Value, len(stats))
	for i, s := range stats {
		count[i] = dataset.Int(s.Count)
		mean[i] = dataset.Number(s.Mean)
		std[i] = dataset.Number(s.Std)
		lo[i] = dataset.Number(s.Min)
		hi[i] = dataset.Number(s.Max)
	}
	return []dataset.Column{
		{Name: prefix + StatCount, Values: count},
		{Name: prefix + StatMean, Values: mean},
		{Name: prefix + StatStd, Values: std},
		{Name: prefix + StatMin, Values: lo},
		{Name: prefix + StatMax, Values: hi},
	}
}
