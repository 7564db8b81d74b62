package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ida/internal/adapters/source"
	"github.com/okian/ida/internal/domain/dataset"
	service "github.com/okian/ida/internal/app"
	"github.com/okian/ida/pkg/logger"
)

const defaultMaxUploadBytes = 32 << 20

// Runner executes an analysis plan. *service.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, ds *dataset.Dataset, plan service.Plan) (*service.Report, error)
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler

	runner         Runner
	reader         *source.Reader
	maxUploadBytes int64
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(runner Runner, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		runner:         runner,
		reader:         source.NewReader(),
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/participation", MetricsMiddleware(s.analysisHandler(service.AnalysisParticipation), "participation"))
	mux.HandleFunc("/v1/deviation", MetricsMiddleware(s.analysisHandler(service.AnalysisDeviation), "deviation"))
	mux.HandleFunc("/v1/structure", MetricsMiddleware(s.analysisHandler(service.AnalysisStructure), "structure"))
	mux.HandleFunc("/v1/run", MetricsMiddleware(s.analysisHandler(), "run"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
