package deviation_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/internal/domain/deviation"
	"github.com/okian/ida/internal/render"
	. "github.com/smartystreets/goconvey/convey"
)

type countingRenderer struct {
	render.Renderer
	calls map[string]int
	cats  []render.Category
}

func (r *countingRenderer) Histogram(context.Context, render.Figure, []float64) error {
	r.calls["histogram"]++
	return nil
}

func (r *countingRenderer) Boxplot(_ context.Context, _ render.Figure, cats []render.Category) error {
	r.calls["boxplot"]++
	r.cats = cats
	return errors.New("no display")
}

func example() *dataset.Dataset {
	return dataset.MustNew(
		dataset.Numbers("subject_id", 1, 1, 2),
		dataset.Numbers("nominal_time", 0, 0, 3),
		dataset.Numbers("actual_time", 0.5, -0.2, 3.1),
	)
}

func TestAnalyzer_Analyze(t *testing.T) {
	Convey("Given nominal and actual times for three rows", t, func() {
		rr := &countingRenderer{calls: make(map[string]int)}
		a := deviation.NewAnalyzer(deviation.WithRenderer(rr))
		in := example()

		res, err := a.Analyze(context.Background(), in)
		So(err, ShouldBeNil)

		Convey("Then each row gets actual minus nominal", func() {
			devs, derr := res.Augmented.Values(deviation.DefaultDeviationColumn)
			So(derr, ShouldBeNil)
			want := []float64{0.5, -0.2, 0.1}
			for i, v := range devs {
				f, ok := v.Float()
				So(ok, ShouldBeTrue)
				So(f, ShouldAlmostEqual, want[i], 1e-9)
			}
			So(res.Augmented.Len(), ShouldEqual, in.Len())
		})

		Convey("And the input is left untouched", func() {
			So(in.Has(deviation.DefaultDeviationColumn), ShouldBeFalse)
			So(res.Augmented.Names(), ShouldResemble, []string{"subject_id", "nominal_time", "actual_time", "deviation"})
		})

		Convey("And the global summary covers every row", func() {
			So(res.Global.Count, ShouldEqual, 3)
			So(res.Global.Mean, ShouldAlmostEqual, 0.4/3, 1e-9)
			So(res.Global.Min, ShouldAlmostEqual, -0.2, 1e-9)
			So(res.Global.Max, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("And per-nominal summaries are ordered by nominal time", func() {
			So(res.PerNominal, ShouldHaveLength, 2)
			So(res.PerNominal[0].Nominal, ShouldResemble, dataset.Int(0))
			So(res.PerNominal[0].Stats.Count, ShouldEqual, 2)
			So(res.PerNominal[0].Stats.Mean, ShouldAlmostEqual, 0.15, 1e-9)
			So(res.PerNominal[1].Nominal, ShouldResemble, dataset.Int(3))
			So(res.PerNominal[1].Stats.Count, ShouldEqual, 1)
			So(res.PerNominal[1].Stats.Mean, ShouldAlmostEqual, 0.1, 1e-9)
			So(math.IsNaN(res.PerNominal[1].Stats.Std), ShouldBeTrue)
		})

		Convey("And both plots were requested despite the boxplot failing", func() {
			So(rr.calls, ShouldResemble, map[string]int{"histogram": 1, "boxplot": 1})
			So(rr.cats, ShouldHaveLength, 2)
			So(rr.cats[0].Label, ShouldEqual, "0")
		})

		Convey("And the tables carry the statistics", func() {
			global, gerr := res.GlobalTable()
			So(gerr, ShouldBeNil)
			So(global.Len(), ShouldEqual, 1)
			per, perr := res.PerNominalTable()
			So(perr, ShouldBeNil)
			So(per.Names(), ShouldResemble, []string{"nominal_time", "count", "mean", "std", "min", "max"})
			So(per.Len(), ShouldEqual, 2)
		})

		Convey("And undefined statistics encode as null", func() {
			raw, jerr := json.Marshal(res)
			So(jerr, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"std":null`)
		})

		Convey("And the augmented dataset is part of the JSON", func() {
			raw, jerr := json.Marshal(res)
			So(jerr, ShouldBeNil)
			var body struct {
				Augmented struct {
					Columns []string `json:"columns"`
					Rows    [][]any  `json:"rows"`
				} `json:"augmented"`
			}
			So(json.Unmarshal(raw, &body), ShouldBeNil)
			So(body.Augmented.Columns, ShouldResemble, []string{"subject_id", "nominal_time", "actual_time", "deviation"})
			So(body.Augmented.Rows, ShouldHaveLength, 3)
			So(body.Augmented.Rows[0][3], ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestAnalyzer_Nulls(t *testing.T) {
	Convey("Given a row with a missing actual time", t, func() {
		ds := dataset.MustNew(
			dataset.Numbers("subject_id", 1, 2),
			dataset.NewColumn("nominal_time", dataset.Int(0), dataset.Int(0)),
			dataset.NewColumn("actual_time", dataset.Number(1), dataset.Null()),
		)
		res, err := deviation.NewAnalyzer(deviation.WithShowPlot(false)).Analyze(context.Background(), ds)

		Convey("Then its deviation is null and excluded from the summaries", func() {
			So(err, ShouldBeNil)
			So(res.Augmented.Row(1)[3].IsNull(), ShouldBeTrue)
			So(res.Global.Count, ShouldEqual, 1)
			So(res.PerNominal[0].Stats.Count, ShouldEqual, 1)
		})
	})
}

func TestAnalyzer_NullNominal(t *testing.T) {
	Convey("Given a row with a missing nominal time", t, func() {
		ds := dataset.MustNew(
			dataset.Numbers("subject_id", 1, 1, 2),
			dataset.NewColumn("nominal_time", dataset.Int(0), dataset.Null(), dataset.Int(3)),
			dataset.Numbers("actual_time", 0.5, 2, 3.5),
		)
		res, err := deviation.NewAnalyzer(deviation.WithShowPlot(false)).Analyze(context.Background(), ds)
		So(err, ShouldBeNil)

		Convey("Then the row stays in place with a null deviation", func() {
			So(res.Augmented.Len(), ShouldEqual, 3)
			So(res.Augmented.Row(1)[2], ShouldResemble, dataset.Number(2))
			So(res.Augmented.Row(1)[3].IsNull(), ShouldBeTrue)
		})

		Convey("And the global summary skips it", func() {
			So(res.Global.Count, ShouldEqual, 2)
			So(res.Global.Mean, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("And no nominal group contains it", func() {
			So(res.PerNominal, ShouldHaveLength, 2)
			So(res.PerNominal[0].Nominal, ShouldResemble, dataset.Int(0))
			So(res.PerNominal[1].Nominal, ShouldResemble, dataset.Int(3))
			total := 0
			for _, ns := range res.PerNominal {
				So(ns.Nominal.IsNull(), ShouldBeFalse)
				total += ns.Stats.Count
			}
			So(total, ShouldEqual, res.Global.Count)
		})
	})
}

func TestAnalyzer_Empty(t *testing.T) {
	Convey("Given a dataset with the columns but no rows", t, func() {
		ds := dataset.MustNew(
			dataset.NewColumn("subject_id"),
			dataset.NewColumn("nominal_time"),
			dataset.NewColumn("actual_time"),
		)
		res, err := deviation.NewAnalyzer(deviation.WithShowPlot(false)).Analyze(context.Background(), ds)

		Convey("Then the summaries are empty and undefined", func() {
			So(err, ShouldBeNil)
			So(res.Augmented.Len(), ShouldEqual, 0)
			So(res.Augmented.Has(deviation.DefaultDeviationColumn), ShouldBeTrue)
			So(res.Global.Count, ShouldEqual, 0)
			So(math.IsNaN(res.Global.Mean), ShouldBeTrue)
			So(math.IsNaN(res.Global.Std), ShouldBeTrue)
			So(res.PerNominal, ShouldBeEmpty)

			per, perr := res.PerNominalTable()
			So(perr, ShouldBeNil)
			So(per.Len(), ShouldEqual, 0)
			raw, jerr := json.Marshal(res)
			So(jerr, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"global":{"count":0,"mean":null`)
		})
	})
}

func TestAnalyzer_Timestamps(t *testing.T) {
	Convey("Given timestamp columns", t, func() {
		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		ds := dataset.MustNew(
			dataset.Texts("id", "a", "b"),
			dataset.NewColumn("planned", dataset.Time(day), dataset.Time(day)),
			dataset.NewColumn("visited", dataset.Time(day.Add(36*time.Hour)), dataset.Time(day.Add(-12*time.Hour))),
		)
		opts := []deviation.Option{
			deviation.WithIDColumn("id"),
			deviation.WithNominalColumn("planned"),
			deviation.WithActualColumn("visited"),
			deviation.WithDeviationColumn("drift"),
			deviation.WithShowPlot(false),
		}

		Convey("When analysed in days", func() {
			res, err := deviation.NewAnalyzer(opts...).Analyze(context.Background(), ds)

			Convey("Then deviations are fractional days", func() {
				So(err, ShouldBeNil)
				So(res.Augmented.Row(0)[3], ShouldResemble, dataset.Number(1.5))
				So(res.Augmented.Row(1)[3], ShouldResemble, dataset.Number(-0.5))
			})
		})

		Convey("When analysed in hours", func() {
			res, err := deviation.NewAnalyzer(append(opts, deviation.WithTimeUnit(time.Hour))...).Analyze(context.Background(), ds)

			Convey("Then deviations are hours", func() {
				So(err, ShouldBeNil)
				So(res.Global.Max, ShouldEqual, 36)
				So(res.DeviationColumn, ShouldEqual, "drift")
			})
		})
	})

	Convey("Given an existing deviation column", t, func() {
		ds := example()
		ds, _ = ds.WithColumn(dataset.Numbers("deviation", 9, 9, 9))
		res, err := deviation.NewAnalyzer(deviation.WithShowPlot(false)).Analyze(context.Background(), ds)

		Convey("Then it is replaced rather than duplicated", func() {
			So(err, ShouldBeNil)
			So(res.Augmented.Names(), ShouldHaveLength, 4)
			So(res.Augmented.Row(0)[3], ShouldResemble, dataset.Number(0.5))
		})
	})
}

func TestAnalyzer_Errors(t *testing.T) {
	Convey("Given a deviation column named after an input column", t, func() {
		for _, name := range []string{"subject_id", "nominal_time", "actual_time"} {
			_, err := deviation.NewAnalyzer(
				deviation.WithDeviationColumn(name),
				deviation.WithShowPlot(false),
			).Analyze(context.Background(), example())

			So(errors.Is(err, deviation.ErrColumnConflict), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, name)
		}
	})

	Convey("Given a dataset missing both time columns", t, func() {
		ds := dataset.MustNew(dataset.Numbers("subject_id", 1))
		_, err := deviation.NewAnalyzer().Analyze(context.Background(), ds)

		Convey("Then every missing column is reported", func() {
			var mc *dataset.MissingColumnError
			So(errors.As(err, &mc), ShouldBeTrue)
			So(mc.Columns, ShouldResemble, []string{"nominal_time", "actual_time"})
		})
	})

	Convey("Given a text actual column", t, func() {
		ds := dataset.MustNew(
			dataset.Numbers("subject_id", 1),
			dataset.Numbers("nominal_time", 0),
			dataset.Texts("actual_time", "late"),
		)
		_, err := deviation.NewAnalyzer().Analyze(context.Background(), ds)

		Convey("Then a type error is returned", func() {
			So(errors.Is(err, dataset.ErrType), ShouldBeTrue)
		})
	})

	Convey("Given numeric nominal and timestamp actual columns", t, func() {
		ds := dataset.MustNew(
			dataset.Numbers("subject_id", 1),
			dataset.Numbers("nominal_time", 0),
			dataset.NewColumn("actual_time", dataset.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
		)
		_, err := deviation.NewAnalyzer().Analyze(context.Background(), ds)

		Convey("Then the mix is rejected", func() {
			var te *dataset.TypeError
			So(errors.As(err, &te), ShouldBeTrue)
			So(te.Column, ShouldEqual, "actual_time")
		})
	})
}
