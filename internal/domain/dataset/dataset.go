package dataset

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Column is a named, ordered sequence of values.
type Column struct {
	Name   string
	Values []Value
}

// NewColumn copies values into a new column.
func NewColumn(name string, values ...Value) Column {
	return Column{Name: name, Values: slices.Clone(values)}
}

// Numbers builds a numeric column; NaN entries become null.
func Numbers(name string, values ...float64) Column {
	out := make([]Value, len(values))
	for i, f := range values {
		out[i] = Number(f)
	}
	return Column{Name: name, Values: out}
}

// Texts builds a text column.
func Texts(name string, values ...string) Column {
	out := make([]Value, len(values))
	for i, s := range values {
		out[i] = Text(s)
	}
	return Column{Name: name, Values: out}
}

// Kind infers the column kind from its non-null values.
func (c Column) Kind() Kind {
	kind := KindNull
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		if kind == KindNull {
			kind = v.Kind()
			continue
		}
		if v.Kind() != kind {
			return KindText
		}
	}
	return kind
}

// Floats returns the numeric payload of c; non-numbers are NaN.
func (c Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		out[i], _ = v.Float()
	}
	return out
}

// Dataset is an immutable table of equally long, uniquely named columns.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New validates and copies columns into a Dataset.
func New(columns ...Column) (*Dataset, error) {
	d := &Dataset{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalid, i)
		}
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalid, c.Name)
		}
		if i == 0 {
			d.rows = len(c.Values)
		} else if len(c.Values) != d.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrInvalid, c.Name, len(c.Values), d.rows)
		}
		d.index[c.Name] = len(d.columns)
		d.columns = append(d.columns, NewColumn(c.Name, c.Values...))
	}
	return d, nil
}

// MustNew is New for literals in tests and examples; it panics on error.
func MustNew(columns ...Column) *Dataset {
	d, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return d
}

// FromRows builds a Dataset from a header and row-major values. Short rows
// are padded with nulls; long rows are an error.
func FromRows(header []string, rows [][]Value) (*Dataset, error) {
	cols := make([]Column, len(header))
	for j, name := range header {
		cols[j] = Column{Name: name, Values: make([]Value, len(rows))}
	}
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrInvalid, i, len(row), len(header))
		}
		for j, v := range row {
			cols[j].Values[i] = v
		}
	}
	return New(cols...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	c := d.columns[i]
	return NewColumn(c.Name, c.Values...), true
}

// values returns the backing slice of a column for read-only use inside the
// domain packages.
func (d *Dataset) values(name string) []Value {
	return d.columns[d.index[name]].Values
}

// Values returns a read-only view of the named column. Callers must not
// modify the returned slice; use Column for an owned copy.
func (d *Dataset) Values(name string) ([]Value, error) {
	if !d.Has(name) {
		return nil, &MissingColumnError{Columns: []string{name}}
	}
	return d.values(name), nil
}

// Row returns a copy of row i in column order.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Values[i]
	}
	return row
}

// WithColumn returns a new Dataset with c appended, or replacing the column
// of the same name in place. The receiver is not modified.
func (d *Dataset) WithColumn(c Column) (*Dataset, error) {
	if len(d.columns) > 0 && len(c.Values) != d.rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrInvalid, c.Name, len(c.Values), d.rows)
	}
	cols := make([]Column, 0, len(d.columns)+1)
	replaced := false
	for _, existing := range d.columns {
		if existing.Name == c.Name {
			cols = append(cols, c)
			replaced = true
			continue
		}
		cols = append(cols, existing)
	}
	if !replaced {
		cols = append(cols, c)
	}
	return New(cols...)
}

// MarshalJSON encodes d row-major as {"columns": [...], "rows": [[...], ...]}.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	rows := make([][]Value, d.rows)
	for i := range d.rows {
		rows[i] = d.Row(i)
	}
	return json.Marshal(struct {
		Columns []string  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{d.Names(), rows})
}
