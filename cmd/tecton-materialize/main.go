// tecton-materialize triggers one materialization job on a feature-platform
// cluster and tracks it to a terminal state. If the latest job with the same
// parameters is running it is cancelled and replaced; if it already
// succeeded the run is skipped unless -overwrite is set.
//
// Retries belong to the invoking scheduler: each invocation of this command
// submits at most one job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/PubChimps/tecton-materialize/internal/config"
	"github.com/PubChimps/tecton-materialize/internal/dispatcher"
	"github.com/PubChimps/tecton-materialize/internal/health"
	"github.com/PubChimps/tecton-materialize/internal/materialize"
	"github.com/PubChimps/tecton-materialize/internal/observability"
	"github.com/PubChimps/tecton-materialize/internal/staging"
	"github.com/PubChimps/tecton-materialize/internal/tecton"
)

type flags struct {
	workspace      string
	featureView    string
	featureService string
	online         bool
	offline        bool
	start          string
	end            string
	jobType        string
	overwrite      bool
	ingestFile     string
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.workspace, "workspace", "", "workspace name (required)")
	flag.StringVar(&f.featureView, "feature-view", "", "feature view to materialize")
	flag.StringVar(&f.featureService, "feature-service", "", "feature service to materialize")
	flag.BoolVar(&f.online, "online", false, "write to the online store")
	flag.BoolVar(&f.offline, "offline", false, "write to the offline store")
	flag.StringVar(&f.start, "start", "", "start of the time range (RFC3339 or YYYY-MM-DD)")
	flag.StringVar(&f.end, "end", "", "end of the time range (RFC3339 or YYYY-MM-DD)")
	flag.StringVar(&f.jobType, "job-type", "", "job type: batch or ingest (default derived from -ingest-file)")
	flag.BoolVar(&f.overwrite, "overwrite", false, "replace an existing successful job for the same parameters")
	flag.StringVar(&f.ingestFile, "ingest-file", "", "newline-delimited JSON file to stage and ingest")
	flag.Parse()
	return f
}

func run() error {
	// Missing .env is fine; env vars may come from the host environment.
	_ = godotenv.Load()

	f := parseFlags()

	query, err := buildQuery(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appCfg := config.LoadAppConfig()
	clientCfg := tecton.LoadConfigFromEnv()

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	client, err := tecton.NewClient(clientCfg, metrics)
	if err != nil {
		return err
	}
	slog.Info("Control-plane client ready", "url", clientCfg.BaseURL)

	healthChecker := health.NewChecker(client)

	// Optional run-event notifications
	var events materialize.EventPublisher
	var notifier *dispatcher.MemoryDispatcher
	if appCfg.CallbackURL != "" {
		notifier, err = dispatcher.NewMemory(
			dispatcher.LoadConfigFromEnv(appCfg.CallbackURL, appCfg.CallbackSigningKey),
			metrics,
		)
		if err != nil {
			return err
		}
		events = notifier
	}

	runner, err := materialize.NewRunner(materialize.Config{
		Client:       client,
		Uploader:     staging.NewUploader(nil, appCfg.UploadTimeout, appCfg.UploadRetries),
		PollInterval: appCfg.PollInterval,
		Metrics:      metrics,
		Events:       events,
	})
	if err != nil {
		return err
	}

	// Metrics and probe server for the duration of the run
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsMux.HandleFunc("GET /healthz", probeHandler(healthChecker.Liveness))
	metricsMux.HandleFunc("GET /readyz", probeHandler(healthChecker.Readiness))
	metricsServer := &http.Server{
		Addr:         ":" + appCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting metrics server", "port", appCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	// An external stop signal cancels the remote job best-effort, then
	// unwinds the polling loops through the context.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		slog.Info("Received stop signal", "signal", sig)
		healthChecker.SetShuttingDown()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		runner.OnStop(stopCtx)
		cancel()
	}()

	var producer materialize.TableProducer
	if f.ingestFile != "" {
		producer = func(ctx context.Context) (*staging.Table, error) {
			return staging.ReadFile(f.ingestFile)
		}
	}

	outcome, runErr := runner.Run(ctx, query, f.overwrite, producer)

	// Teardown: stop the probe server, drain pending notifications.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics server shutdown error", "error", err)
	}
	if notifier != nil {
		if err := notifier.Close(shutdownCtx); err != nil {
			slog.Warn("Notifier shutdown error", "error", err)
		}
		stats := notifier.Stats()
		slog.Info("Notifier stats",
			"delivered", stats.Delivered,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("Done", "outcome", string(outcome))
	return nil
}

// buildQuery assembles and pre-checks the job query from flags. Full
// validation happens in the runner.
func buildQuery(f flags) (materialize.JobQuery, error) {
	start, err := parseTime(f.start)
	if err != nil {
		return materialize.JobQuery{}, fmt.Errorf("invalid -start: %w", err)
	}
	end, err := parseTime(f.end)
	if err != nil {
		return materialize.JobQuery{}, fmt.Errorf("invalid -end: %w", err)
	}

	return materialize.JobQuery{
		Workspace:      f.workspace,
		FeatureView:    f.featureView,
		FeatureService: f.featureService,
		Online:         f.online,
		Offline:        f.offline,
		StartTime:      start,
		EndTime:        end,
		JobType:        materialize.JobType(f.jobType),
	}, nil
}

// parseTime accepts RFC3339 timestamps or bare dates (midnight UTC).
func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func probeHandler(probe func(ctx context.Context) *health.Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := probe(r.Context())
		status := http.StatusOK
		if !resp.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		fmt.Fprintln(w, string(resp.Status))
	}
}
