// Package aggregate implements the group-by and describe primitives shared by
// the analyses.
package aggregate

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/okian/ida/internal/domain/dataset"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the non-null values of a numeric series.
// Std is the sample standard deviation (n-1 denominator).
type Stats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Describe computes Stats over xs, ignoring NaN. With no values every
// statistic is NaN and Count is 0; with one value Std is NaN.
func Describe(xs []float64) Stats {
	clean := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			clean = append(clean, x)
		}
	}
	s := Stats{
		Count: len(clean),
		Mean:  math.NaN(),
		Std:   math.NaN(),
		Min:   math.NaN(),
		Max:   math.NaN(),
	}
	if len(clean) == 0 {
		return s
	}
	s.Mean = stat.Mean(clean, nil)
	if len(clean) > 1 {
		s.Std = stat.StdDev(clean, nil)
	}
	s.Min = floats.Min(clean)
	s.Max = floats.Max(clean)
	return s
}

// MarshalJSON encodes undefined statistics as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int      `json:"count"`
		Mean  *float64 `json:"mean"`
		Std   *float64 `json:"std"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
	}{s.Count, finite(s.Mean), finite(s.Std), finite(s.Min), finite(s.Max)})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Group is the set of row indices sharing a key.
type Group struct {
	Key  dataset.Value
	Rows []int
}

// GroupBy partitions every row index of keys by value. See GroupRows.
func GroupBy(keys []dataset.Value) []Group {
	return GroupRows(keys, All(len(keys)))
}

// GroupRows partitions the given row indices by their key. Null keys are
// dropped. Groups are ordered by key ascending; rows keep input order.
func GroupRows(keys []dataset.Value, rows []int) []Group {
	pos := make(map[dataset.Value]int)
	var groups []Group
	for _, i := range rows {
		k := keys[i]
		if k.IsNull() {
			continue
		}
		g, ok := pos[k]
		if !ok {
			g = len(groups)
			pos[k] = g
			groups = append(groups, Group{Key: k})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	slices.SortFunc(groups, func(a, b Group) int { return a.Key.Compare(b.Key) })
	return groups
}

// All returns the row indices 0..n-1.
func All(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// Keys returns the group keys in order.
func Keys(groups []Group) []dataset.Value {
	keys := make([]dataset.Value, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

// Distinct returns the non-null distinct values of vs, ascending.
func Distinct(vs []dataset.Value) []dataset.Value {
	seen := make(map[dataset.Value]struct{})
	out := make([]dataset.Value, 0)
	for _, v := range vs {
		if v.IsNull() {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.SortFunc(out, dataset.Value.Compare)
	return out
}

// CountDistinct counts the distinct non-null values of vs at rows.
func CountDistinct(vs []dataset.Value, rows []int) int {
	seen := make(map[dataset.Value]struct{}, len(rows))
	for _, r := range rows {
		if v := vs[r]; !v.IsNull() {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Pick gathers xs at rows.
func Pick(xs []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = xs[r]
	}
	return out
}
