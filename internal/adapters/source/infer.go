package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/ida/internal/domain/dataset"
)

// Default cell spellings read as null.
var defaultNullTokens = []string{"", "na", "n/a", "nan", "null", "none", "."}

// Default layouts tried for time columns. The last is the short date that
// spreadsheets render for date-formatted cells.
var defaultLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
	"01-02-06",
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// inferColumn types a column of raw cells as a whole: numbers if every
// non-null cell parses as a number, times if every one parses with the same
// layout, text otherwise. Mixed columns stay text so no cell changes meaning.
func (r *Reader) inferColumn(name string, cells []string) dataset.Column {
	values := make([]dataset.Value, len(cells))
	present := make([]bool, len(cells))
	found := false
	for i, c := range cells {
		if _, null := r.nulls[normalize(c)]; !null {
			present[i] = true
			found = true
		}
	}
	if !found {
		return dataset.Column{Name: name, Values: values}
	}
	if nums, ok := parseAll(cells, present, parseNumber); ok {
		return dataset.Column{Name: name, Values: nums}
	}
	for _, layout := range r.layouts {
		parse := func(s string) (dataset.Value, bool) { return parseTime(layout, s) }
		if ts, ok := parseAll(cells, present, parse); ok {
			return dataset.Column{Name: name, Values: ts}
		}
	}
	for i, c := range cells {
		if present[i] {
			values[i] = dataset.Text(strings.TrimSpace(c))
		}
	}
	return dataset.Column{Name: name, Values: values}
}

func parseAll(cells []string, present []bool, parse func(string) (dataset.Value, bool)) ([]dataset.Value, bool) {
	out := make([]dataset.Value, len(cells))
	for i, c := range cells {
		if !present[i] {
			continue
		}
		v, ok := parse(strings.TrimSpace(c))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseNumber(s string) (dataset.Value, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return dataset.Value{}, false
	}
	return dataset.Number(f), true
}

func parseTime(layout, s string) (dataset.Value, bool) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return dataset.Value{}, false
	}
	return dataset.Time(t), true
}
