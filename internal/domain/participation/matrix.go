package participation

import (
	"encoding/json"

	"github.com/okian/ida/internal/domain/dataset"
)

// Matrix is the set of observed (subject, time point) pairs. Repeated
// observations of a pair collapse to a single presence.
type Matrix struct {
	subjects []dataset.Value
	times    []dataset.Value
	present  map[pair]struct{}
}

type pair struct {
	subject dataset.Value
	time    dataset.Value
}

// Subjects returns the row axis, ascending.
func (m *Matrix) Subjects() []dataset.Value { return append([]dataset.Value(nil), m.subjects...) }

// TimePoints returns the column axis, ascending.
func (m *Matrix) TimePoints() []dataset.Value { return append([]dataset.Value(nil), m.times...) }

// Present reports whether subject was observed at time.
func (m *Matrix) Present(subject, time dataset.Value) bool {
	_, ok := m.present[pair{subject: subject, time: time}]
	return ok
}

// Cells returns the number of observed pairs.
func (m *Matrix) Cells() int { return len(m.present) }

// Dense materialises the subject x time grid.
func (m *Matrix) Dense() [][]bool {
	grid := make([][]bool, len(m.subjects))
	for i, s := range m.subjects {
		grid[i] = make([]bool, len(m.times))
		for j, t := range m.times {
			grid[i][j] = m.Present(s, t)
		}
	}
	return grid
}

// MarshalJSON encodes the axes and a subject-major grid of 0/1 cells.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	cells := make([][]int, len(m.subjects))
	for i, row := range m.Dense() {
		cells[i] = make([]int, len(row))
		for j, ok := range row {
			if ok {
				cells[i][j] = 1
			}
		}
	}
	subjects := m.Subjects()
	if subjects == nil {
		subjects = []dataset.Value{}
	}
	times := m.TimePoints()
	if times == nil {
		times = []dataset.Value{}
	}
	return json.Marshal(struct {
		Subjects   []dataset.Value `json:"subjects"`
		TimePoints []dataset.Value `json:"time_points"`
		Cells      [][]int         `json:"cells"`
	}{subjects, times, cells})
}
