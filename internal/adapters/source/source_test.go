package source_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/ida/internal/adapters/source"
	"github.com/okian/ida/internal/domain/dataset"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

const longitudinal = "\ufeffsubject_id,time_point,visit_date,site,bmi\n" +
	"1,0,2024-01-01,A,21.5\n" +
	"1,1,2024-02-01,A,NA\n" +
	"2,0,,B,23\n" +
	"\n"

func TestReader_CSV(t *testing.T) {
	Convey("Given a CSV with a BOM, nulls and mixed column kinds", t, func() {
		r := source.NewReader()
		ds, err := r.Read(context.Background(), strings.NewReader(longitudinal), source.FormatCSV)
		So(err, ShouldBeNil)

		Convey("Then the header is clean and trailing blanks are dropped", func() {
			So(ds.Names(), ShouldResemble, []string{"subject_id", "time_point", "visit_date", "site", "bmi"})
			So(ds.Len(), ShouldEqual, 3)
		})

		Convey("And each column gets a single inferred kind", func() {
			kinds := map[string]dataset.Kind{}
			for _, name := range ds.Names() {
				col, _ := ds.Column(name)
				kinds[name] = col.Kind()
			}
			So(kinds, ShouldResemble, map[string]dataset.Kind{
				"subject_id": dataset.KindNumber,
				"time_point": dataset.KindNumber,
				"visit_date": dataset.KindTime,
				"site":       dataset.KindText,
				"bmi":        dataset.KindNumber,
			})
		})

		Convey("And null spellings become null cells", func() {
			So(ds.Row(1)[4].IsNull(), ShouldBeTrue)
			So(ds.Row(2)[2].IsNull(), ShouldBeTrue)
			So(ds.Row(0)[2], ShouldResemble, dataset.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		})
	})

	Convey("Given a column mixing numbers and words", t, func() {
		ds, err := source.NewReader().Read(context.Background(), strings.NewReader("code\n1\nx1\n"), source.FormatCSV)

		Convey("Then it stays text", func() {
			So(err, ShouldBeNil)
			So(ds.Row(0)[0], ShouldResemble, dataset.Text("1"))
		})
	})

	Convey("Given custom tokens and delimiter", t, func() {
		r := source.NewReader(source.WithComma(';'), source.WithNullTokens("-"), source.WithTimeLayouts("02.01.2006"))
		ds, err := r.Read(context.Background(), strings.NewReader("d;v\n31.12.2023;-\n01.01.2024;NA\n"), source.FormatCSV)

		Convey("Then they are honoured", func() {
			So(err, ShouldBeNil)
			col, _ := ds.Column("d")
			So(col.Kind(), ShouldEqual, dataset.KindTime)
			So(ds.Row(0)[1].IsNull(), ShouldBeTrue)
			So(ds.Row(1)[1], ShouldResemble, dataset.Text("NA"))
		})

		Convey("And With derives a reader without touching the original", func() {
			tab := r.With(source.WithComma('\t'))
			ds, err := tab.Read(context.Background(), strings.NewReader("a\tb\n1\t2\n"), source.FormatCSV)
			So(err, ShouldBeNil)
			So(ds.Names(), ShouldResemble, []string{"a", "b"})

			ds, err = r.Read(context.Background(), strings.NewReader("a;b\n1;2\n"), source.FormatCSV)
			So(err, ShouldBeNil)
			So(ds.Names(), ShouldResemble, []string{"a", "b"})
		})
	})

	Convey("Given unusable input", t, func() {
		r := source.NewReader()
		ctx := context.Background()

		Convey("Then an empty body is empty input", func() {
			_, err := r.ReadBytes(ctx, []byte("  \n"), source.FormatCSV)
			So(errors.Is(err, dataset.ErrEmptyInput), ShouldBeTrue)
			So(source.IsInputError(err), ShouldBeTrue)
		})

		Convey("And a header-only file is a zero-row dataset", func() {
			ds, err := r.ReadBytes(ctx, []byte("subject_id,time_point\n"), source.FormatCSV)
			So(err, ShouldBeNil)
			So(ds.Len(), ShouldEqual, 0)
		})

		Convey("And rows wider than the header are rejected", func() {
			_, err := r.ReadBytes(ctx, []byte("a\n1,2\n"), source.FormatCSV)
			So(errors.Is(err, dataset.ErrInvalid), ShouldBeTrue)
		})

		Convey("And duplicate headers are a read error", func() {
			_, err := r.ReadBytes(ctx, []byte("a,a\n1,2\n"), source.FormatCSV)
			So(errors.Is(err, source.ErrRead), ShouldBeTrue)
		})

		Convey("And unknown formats are rejected", func() {
			_, err := r.Read(ctx, strings.NewReader("a"), source.Format("parquet"))
			So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
			_, err = r.Load(ctx, "data.parquet")
			So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
		})
	})
}

func TestReader_XLSX(t *testing.T) {
	Convey("Given a workbook with two sheets", t, func() {
		f := excelize.NewFile()
		So(f.SetSheetRow("Sheet1", "A1", &[]any{"ignored"}), ShouldBeNil)
		_, err := f.NewSheet("visits")
		So(err, ShouldBeNil)
		So(f.SetSheetRow("visits", "A1", &[]any{"subject_id", "nominal_time", "actual_time"}), ShouldBeNil)
		So(f.SetSheetRow("visits", "A2", &[]any{1, 0, 0.5}), ShouldBeNil)
		So(f.SetSheetRow("visits", "A3", &[]any{2, 3}), ShouldBeNil)
		var buf bytes.Buffer
		So(f.Write(&buf), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		path := filepath.Join(t.TempDir(), "visits.xlsx")
		So(os.WriteFile(path, buf.Bytes(), 0o600), ShouldBeNil)

		Convey("When loading the named sheet", func() {
			ds, err := source.NewReader(source.WithSheet("visits")).Load(context.Background(), path)

			Convey("Then numbers are typed and short rows padded", func() {
				So(err, ShouldBeNil)
				So(ds.Names(), ShouldResemble, []string{"subject_id", "nominal_time", "actual_time"})
				So(ds.Row(0), ShouldResemble, []dataset.Value{dataset.Int(1), dataset.Int(0), dataset.Number(0.5)})
				So(ds.Row(1)[2].IsNull(), ShouldBeTrue)
			})
		})

		Convey("When no sheet is named", func() {
			ds, err := source.NewReader().ReadBytes(context.Background(), buf.Bytes(), source.FormatXLSX)

			Convey("Then the first sheet is read", func() {
				So(err, ShouldBeNil)
				So(ds.Names(), ShouldResemble, []string{"ignored"})
			})
		})

		Convey("When the sheet does not exist", func() {
			_, err := source.NewReader(source.WithSheet("nope")).Load(context.Background(), path)

			Convey("Then ErrSheetNotFound is returned", func() {
				So(errors.Is(err, source.ErrSheetNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given bytes that are not a workbook", t, func() {
		_, err := source.NewReader().ReadBytes(context.Background(), []byte("not a zip"), source.FormatXLSX)
		So(errors.Is(err, source.ErrRead), ShouldBeTrue)
	})
}

func TestFormats(t *testing.T) {
	Convey("Formats resolve from paths and content types", t, func() {
		f, err := source.FormatFromPath("a/b/Data.XLSX")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, source.FormatXLSX)
		f, err = source.FormatFromContentType("text/csv; charset=utf-8")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, source.FormatCSV)
		f, err = source.FormatFromContentType(source.ContentTypeXLSX)
		So(err, ShouldBeNil)
		So(f, ShouldEqual, source.FormatXLSX)
		_, err = source.FormatFromContentType("application/json")
		So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
	})
}
