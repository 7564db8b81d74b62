package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/ida/internal/adapters/source"
	service "github.com/okian/ida/internal/app"
	"github.com/okian/ida/pkg/logger"

	"github.com/google/uuid"
)

// analysisHandler serves POST requests whose body is a CSV or XLSX dataset.
// With fixed analyses the plan is pinned; otherwise the analyses query
// parameter selects them.
func (s *Server) analysisHandler(fixed ...service.Analysis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		q := r.URL.Query()

		plan, err := planFromQuery(q, fixed)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}

		format, err := requestFormat(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported_format", err)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "too_large",
					fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit))
				return
			}
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}

		reader := s.reader
		if sheet := q.Get("sheet"); sheet != "" {
			reader = reader.With(source.WithSheet(sheet))
		}
		ctx := r.Context()
		ds, err := reader.ReadBytes(ctx, body, format)
		if err != nil {
			s.fail(ctx, w, err)
			return
		}

		rep, err := s.runner.Run(ctx, ds, plan)
		if err != nil {
			s.fail(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// fail maps err onto a status code and error body.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	if source.IsInputError(err) {
		writeError(w, http.StatusBadRequest, "bad_input", err)
		return
	}
	switch kind := service.ErrorKind(err); kind {
	case "missing_column", "type_error", "no_variables", "column_conflict":
		writeError(w, http.StatusUnprocessableEntity, kind, fmt.Errorf("%w: %w", ErrUnprocessable, err))
	case "bad_plan":
		writeError(w, http.StatusBadRequest, kind, err)
	case "canceled":
		writeError(w, http.StatusServiceUnavailable, kind, err)
	default:
		s.logger.Error(ctx, "analysis failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

// planFromQuery reads column overrides and variable lists from q.
func planFromQuery(q url.Values, fixed []service.Analysis) (service.Plan, error) {
	plan := service.Plan{
		Analyses: fixed,
		Columns: service.Columns{
			ID:        q.Get("id"),
			Time:      q.Get("time"),
			Nominal:   q.Get("nominal"),
			Actual:    q.Get("actual"),
			Deviation: q.Get("deviation"),
		},
		Structural: splitList(q.Get("structural")),
		Outcomes:   splitList(q.Get("outcomes")),
	}
	if len(fixed) > 0 {
		return plan, nil
	}
	names := splitList(q.Get("analyses"))
	if len(names) == 0 {
		return plan, fmt.Errorf("%w: analyses parameter is required", ErrBadRequest)
	}
	for _, n := range names {
		a, err := service.ParseAnalysis(n)
		if err != nil {
			return plan, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		plan.Analyses = append(plan.Analyses, a)
	}
	return plan, nil
}

// requestFormat takes the format query parameter over the Content-Type.
func requestFormat(r *http.Request) (source.Format, error) {
	switch f := source.Format(strings.ToLower(r.URL.Query().Get("format"))); f {
	case "":
		return source.FormatFromContentType(r.Header.Get("Content-Type"))
	case source.FormatCSV, source.FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", source.ErrUnsupportedFormat, f)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// requestID returns the caller's X-Request-ID or a fresh one.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}
