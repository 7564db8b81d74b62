// Command ida runs initial data analyses over longitudinal datasets, either
// once over a file or as an HTTP service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/ida/internal/adapters/http/api"
	"github.com/okian/ida/internal/adapters/http/swagger"
	"github.com/okian/ida/internal/adapters/sink"
	"github.com/okian/ida/internal/adapters/source"
	service "github.com/okian/ida/internal/app"
	"github.com/okian/ida/internal/config"
	"github.com/okian/ida/internal/render"
	"github.com/okian/ida/pkg/logger"
	"github.com/okian/ida/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

const usage = `usage: ida <participation|deviation|structure|all> [flags] <file.csv|file.xlsx>
       ida serve [flags]`

var errUsage = errors.New(usage)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "ida:", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run dispatches one command. Reports go to stdout, logs to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command, args := args[0], args[1:]

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	input, err := parseFlags(command, args, cfg, stderr)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(stderr)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Get()

	reader := source.NewReader(
		source.WithSheet(cfg.Sheet),
		source.WithLogger(log.Named("source")),
	)
	svc := newService(cfg, log)

	switch command {
	case "serve":
		return serve(ctx, cfg, svc, reader, log)
	case "participation", "deviation", "structure", "all":
		return analyze(ctx, cfg, command, input, svc, reader, stdout, log)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// parseFlags layers command-line flags over cfg and returns the input path,
// which only the analysis commands take.
func parseFlags(command string, args []string, cfg *config.Config, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet("ida "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.IDColumn, "id", cfg.IDColumn, "subject identifier column")
	fs.StringVar(&cfg.TimeColumn, "time", cfg.TimeColumn, "time point column")
	fs.StringVar(&cfg.NominalColumn, "nominal", cfg.NominalColumn, "nominal time column")
	fs.StringVar(&cfg.ActualColumn, "actual", cfg.ActualColumn, "actual time column")
	fs.Func("structural", "comma separated structural variables", func(v string) error {
		cfg.StructuralVars = splitList(v)
		return nil
	})
	fs.Func("outcomes", "comma separated outcome variables", func(v string) error {
		cfg.OutcomeVars = splitList(v)
		return nil
	})
	fs.BoolVar(&cfg.ShowPlot, "plot", cfg.ShowPlot, "render plots")
	fs.StringVar(&cfg.PlotDir, "plot-dir", cfg.PlotDir, "directory for plot files")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for result tables and report.json")
	fs.StringVar(&cfg.TableFormat, "format", cfg.TableFormat, "table format: csv or xlsx")
	fs.StringVar(&cfg.Sheet, "sheet", cfg.Sheet, "workbook sheet to read")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for serve")
	fs.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "write metrics here after the run")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	var input string
	if command != "serve" {
		if fs.NArg() != 1 {
			return "", fmt.Errorf("%w: expected one input file", errUsage)
		}
		input = fs.Arg(0)
	}
	return input, cfg.Validate()
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithColumns(service.Columns{
			ID:      cfg.IDColumn,
			Time:    cfg.TimeColumn,
			Nominal: cfg.NominalColumn,
			Actual:  cfg.ActualColumn,
		}),
		service.WithVariables(cfg.StructuralVars, cfg.OutcomeVars),
		service.WithShowPlot(cfg.ShowPlot),
		service.WithDeviationUnit(cfg.DeviationUnit),
	}
	if cfg.ShowPlot {
		opts = append(opts, service.WithPlotFiles(
			render.WithDir(cfg.PlotDir),
			render.WithFormat(strings.ToLower(cfg.PlotFormat)),
			render.WithSizeCM(cfg.PlotWidthCM, cfg.PlotHeightCM),
			render.WithBins(cfg.HistogramBins),
		))
	}
	return service.New(opts...)
}

// analyze runs command over input, prints the report and saves the tables
// when an output directory is set.
func analyze(ctx context.Context, cfg *config.Config, command, input string, svc *service.Service, reader *source.Reader, stdout io.Writer, log logger.Logger) error {
	ds, err := reader.Load(ctx, input)
	if err != nil {
		return err
	}

	plan := service.Plan{Structural: cfg.StructuralVars, Outcomes: cfg.OutcomeVars}
	if command == "all" {
		plan.Analyses = []service.Analysis{service.AnalysisParticipation, service.AnalysisDeviation}
		if len(cfg.StructuralVars) > 0 {
			plan.Analyses = append(plan.Analyses, service.AnalysisStructure)
		} else {
			log.Info(ctx, "no structural variables configured; skipping structure")
		}
	} else {
		a, err := service.ParseAnalysis(command)
		if err != nil {
			return err
		}
		plan.Analyses = []service.Analysis{a}
	}

	rep, err := svc.Run(ctx, ds, plan)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.OutDir != "" {
		w := sink.NewWriter(cfg.OutDir,
			sink.WithFormat(sink.Format(strings.ToLower(cfg.TableFormat))),
			sink.WithLogger(log.Named("sink")),
		)
		paths, err := rep.Save(ctx, w)
		if err != nil {
			return err
		}
		log.Info(ctx, "results saved", logger.Strings("files", paths))
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return err
		}
	}
	return nil
}

// serve runs the HTTP API until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config, svc *service.Service, reader *source.Reader, log logger.Logger) error {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithReader(reader),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
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
