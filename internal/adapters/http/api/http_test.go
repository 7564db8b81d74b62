package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/ida/internal/adapters/http/api"
	service "github.com/okian/ida/internal/app"
	"github.com/okian/ida/internal/domain/dataset"

	. "github.com/smartystreets/goconvey/convey"
)

const visitsCSV = "subject_id,time_point,nominal_time,actual_time,site\n" +
	"s1,1,1,1.5,a\n" +
	"s1,2,2,1.8,a\n" +
	"s2,1,1,1.1,b\n"

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, *dataset.Dataset, service.Plan) (*service.Report, error) {
	return nil, f.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(runner api.Runner, stats api.StatsProvider, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(runner, stats, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server backed by a real service", t, func() {
		svc := service.New()
		mux := newMux(svc, svc)

		Convey("Then /healthz serves the metrics registry", func() {
			w := do(mux, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("Then /stats reflects completed runs", func() {
			So(do(mux, http.MethodPost, "/v1/participation", "text/csv", visitsCSV).Code, ShouldEqual, http.StatusOK)

			w := do(mux, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["runs"], ShouldEqual, float64(1))
		})

		Convey("Then a participation upload returns a report", func() {
			w := do(mux, http.MethodPost, "/v1/participation", "text/csv; charset=utf-8", visitsCSV)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["run_id"], ShouldNotBeEmpty)
			So(body["rows"], ShouldEqual, float64(3))
			So(body, ShouldContainKey, "participation")
			So(body, ShouldNotContainKey, "deviation")

			part := body["participation"].(map[string]any)
			So(part, ShouldContainKey, "matrix")
			matrix := part["matrix"].(map[string]any)
			So(matrix["subjects"], ShouldResemble, []any{"s1", "s2"})
			So(matrix["time_points"], ShouldResemble, []any{float64(1), float64(2)})
			So(matrix["cells"], ShouldResemble, []any{
				[]any{float64(1), float64(1)},
				[]any{float64(1), float64(0)},
			})
		})

		Convey("Then a deviation upload returns the augmented dataset", func() {
			w := do(mux, http.MethodPost, "/v1/deviation?deviation=drift", "text/csv", visitsCSV)
			So(w.Code, ShouldEqual, http.StatusOK)
			dev := decode(w)["deviation"].(map[string]any)
			So(dev["deviation_column"], ShouldEqual, "drift")
			So(dev, ShouldContainKey, "augmented")
			augmented := dev["augmented"].(map[string]any)
			So(augmented["columns"], ShouldResemble, []any{"subject_id", "time_point", "nominal_time", "actual_time", "site", "drift"})
			rows := augmented["rows"].([]any)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].([]any)[5], ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Then /v1/run runs the listed analyses once each", func() {
			w := do(mux, http.MethodPost, "/v1/run?analyses=deviation,structure,deviation&structural=site&outcomes=actual_time", "text/csv", visitsCSV)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["analyses"], ShouldResemble, []any{"deviation", "structure"})
			So(body, ShouldContainKey, "structure")
		})

		Convey("Then the format parameter overrides the content type", func() {
			w := do(mux, http.MethodPost, "/v1/participation?format=csv", "application/octet-stream", visitsCSV)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then a caller's request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set("X-Request-ID", "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get("X-Request-ID"), ShouldEqual, "abc-123")
		})
	})
}

func TestServer_Errors(t *testing.T) {
	Convey("Given a server backed by a real service", t, func() {
		svc := service.New()
		mux := newMux(svc, svc, api.WithMaxUploadBytes(1024))

		cases := []struct {
			name, method, target, contentType, body string
			status                                  int
			code                                    string
		}{
			{"wrong method", http.MethodGet, "/v1/participation", "", "", http.StatusMethodNotAllowed, "method_not_allowed"},
			{"stats by POST", http.MethodPost, "/stats", "", "", http.StatusMethodNotAllowed, "method_not_allowed"},
			{"no analyses", http.MethodPost, "/v1/run", "text/csv", visitsCSV, http.StatusBadRequest, "bad_request"},
			{"unknown analysis", http.MethodPost, "/v1/run?analyses=participation,survival", "text/csv", visitsCSV, http.StatusBadRequest, "bad_request"},
			{"json body", http.MethodPost, "/v1/participation", "application/json", "{}", http.StatusBadRequest, "unsupported_format"},
			{"bad format parameter", http.MethodPost, "/v1/participation?format=ods", "", visitsCSV, http.StatusBadRequest, "unsupported_format"},
			{"empty body", http.MethodPost, "/v1/participation", "text/csv", "  \n", http.StatusBadRequest, "bad_input"},
			{"ragged rows", http.MethodPost, "/v1/participation", "text/csv", "a,b\n1,2,3\n", http.StatusBadRequest, "bad_input"},
			{"missing column", http.MethodPost, "/v1/deviation?nominal=planned", "text/csv", visitsCSV, http.StatusUnprocessableEntity, "missing_column"},
			{"text as time", http.MethodPost, "/v1/deviation?actual=site", "text/csv", visitsCSV, http.StatusUnprocessableEntity, "type_error"},
			{"deviation over an input", http.MethodPost, "/v1/deviation?deviation=nominal_time", "text/csv", visitsCSV, http.StatusUnprocessableEntity, "column_conflict"},
			{"no variables", http.MethodPost, "/v1/structure", "text/csv", visitsCSV, http.StatusUnprocessableEntity, "no_variables"},
			{"too large", http.MethodPost, "/v1/participation", "text/csv", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge, "too_large"},
		}

		for _, tc := range cases {
			Convey("When the request has "+tc.name, func() {
				w := do(mux, tc.method, tc.target, tc.contentType, tc.body)

				Convey("Then it is rejected with the matching status", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(decode(w)["code"], ShouldEqual, tc.code)
				})
			})
		}
	})

	Convey("Given a runner that fails unexpectedly", t, func() {
		mux := newMux(failingRunner{err: errors.New("disk on fire")}, &mockStatsProvider{})
		w := do(mux, http.MethodPost, "/v1/participation", "text/csv", visitsCSV)

		Convey("Then the cause is not leaked", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode(w)
			So(body["code"], ShouldEqual, "internal")
			So(body["message"], ShouldNotContainSubstring, "disk")
		})
	})

	Convey("Given a runner whose request was canceled", t, func() {
		mux := newMux(failingRunner{err: context.Canceled}, &mockStatsProvider{})
		w := do(mux, http.MethodPost, "/v1/run?analyses=participation", "text/csv", visitsCSV)

		So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		So(decode(w)["code"], ShouldEqual, "canceled")
	})
}
