package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ida/internal/adapters/sink"
	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/domain/deviation"
	"github.com/okian/ida/internal/domain/participation"
	"github.com/okian/ida/internal/domain/structure"
)

// Report is the outcome of one run. Only the analyses listed in Analyses
// are set.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Rows      int           `json:"rows"`
	Columns   []string      `json:"columns"`
	Analyses  []Analysis    `json:"analyses"`

	Participation *participation.Summary `json:"participation,omitempty"`
	Deviation     *deviation.Result      `json:"deviation,omitempty"`
	Structure     *structure.Summary     `json:"structure,omitempty"`
}

// Tables returns every result table of the report, named for output files.
func (r *Report) Tables() ([]sink.Table, error) {
	var tables []sink.Table
	add := func(name string, build func() (*dataset.Dataset, error)) error {
		ds, err := build()
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		tables = append(tables, sink.Table{Name: name, Data: ds})
		return nil
	}

	if p := r.Participation; p != nil {
		if err := add("subjects_per_time", p.SubjectsPerTimeTable); err != nil {
			return nil, err
		}
		if err := add("visits_per_subject", p.VisitsPerSubjectTable); err != nil {
			return nil, err
		}
		if err := add("participation_matrix", p.MatrixTable); err != nil {
			return nil, err
		}
	}
	if d := r.Deviation; d != nil {
		tables = append(tables, sink.Table{Name: "deviation_rows", Data: d.Augmented})
		if err := add("deviation_global", d.GlobalTable); err != nil {
			return nil, err
		}
		if err := add("deviation_per_nominal", d.PerNominalTable); err != nil {
			return nil, err
		}
	}
	if st := r.Structure; st != nil {
		for _, e := range st.Entries {
			if err := add("structure_"+e.Variable, e.Table); err != nil {
				return nil, err
			}
		}
	}
	return tables, nil
}

// Save writes every table and the report itself as report.json through w,
// returning the files written.
func (r *Report) Save(ctx context.Context, w *sink.Writer) ([]string, error) {
	tables, err := r.Tables()
	if err != nil {
		return nil, err
	}
	paths, err := w.WriteTables(ctx, tables)
	if err != nil {
		return paths, err
	}
	path, err := w.WriteJSON(ctx, "report", r)
	if err != nil {
		return paths, err
	}
	return append(paths, path), nil
}
