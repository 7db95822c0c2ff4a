// Package main is the entry point for the TrailWatch service.
//
// It loads configuration, connects the database pool and AWS clients, builds
// the report generation pipeline (forecast providers, aggregation, delivery
// queue) and runs two things side by side: the HTTP API and the scheduler
// loop that produces morning, evening and dynamic update reports.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"trailwatch/internal/api/handlers"
	"trailwatch/internal/archive"
	"trailwatch/internal/config"
	"trailwatch/internal/core"
	"trailwatch/internal/db"
	"trailwatch/internal/external"
	"trailwatch/internal/metrics"
	"trailwatch/internal/queue"
	"trailwatch/internal/reportgen"
	"trailwatch/internal/route"
	"trailwatch/internal/scheduler"
	"trailwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	oneShot := flag.String("report", "",
		"generate a single report (morning|evening|update) and exit instead of serving")
	flag.Parse()

	// For local development the SecretProvider is nil since SSM resolution is
	// bypassed when APP_ENV=local.
	var secrets config.SecretProvider
	if env := os.Getenv("APP_ENV"); env != "" && env != "local" {
		secrets = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}

	cfg, err := config.LoadConfig(secrets)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("trailwatch starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Trek definition. The whole pipeline is built around one loaded route.
	trek, err := route.Load(cfg.Route.File)
	if err != nil {
		return fmt.Errorf("loading route %s: %w", cfg.Route.File, err)
	}
	logger.Info("route loaded",
		"name", trek.Name,
		"stages", len(trek.Stages),
		"start", trek.StartDate.Format("2006-01-02"),
	)

	// Raw payload archive for provider responses.
	archiver, err := archive.New(cfg.Route.ArchiveDir, nil, logger)
	if err != nil {
		return fmt.Errorf("creating archive at %s: %w", cfg.Route.ArchiveDir, err)
	}

	// Upstream forecast and fire-risk clients.
	registry := external.NewClientRegistry(external.RegistryConfig{
		Stub:               cfg.StubProviders,
		MeteoFranceToken:   cfg.Forecast.MeteoFranceToken.Unmask(),
		MeteoFranceBaseURL: cfg.Forecast.MeteoFranceBaseURL,
		OpenMeteoBaseURL:   cfg.Forecast.OpenMeteoBaseURL,
		FireRiskBaseURL:    cfg.Forecast.FireRiskBaseURL,
		Logger:             logger,
		Sink:               archiver,
	})

	// Database pool.
	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}

	// AWS clients. BaseEndpoint override supports LocalStack.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	publisher := queue.NewPublisher(sqsClient,
		cfg.AWS.DeliveryQueueUrgent, cfg.AWS.DeliveryQueueStandard, logger)

	var recorder metrics.Recorder = metrics.NopRecorder{}
	if cfg.Observability.EnableMetrics {
		recorder = metrics.NewCloudWatchRecorder(cloudwatch.NewFromConfig(awsCfg), logger)
	}

	// Report pipeline.
	reportRepo := db.NewReportRepository(pool)
	stateRepo := db.NewSchedulerStateRepository(pool)

	svc := reportgen.NewService(reportgen.Config{
		Route:      trek,
		Provider:   registry.Forecast,
		Fire:       registry.FireRisk,
		Store:      reportRepo,
		Publisher:  publisher,
		Recorder:   recorder,
		Thresholds: cfg.Thresholds,
		Logger:     logger,
	})

	sched, err := scheduler.New(scheduler.Config{
		MorningAt:      cfg.Schedule.MorningAt,
		EveningAt:      cfg.Schedule.EveningAt,
		DeltaThreshold: cfg.Schedule.DeltaThreshold,
		MinInterval:    cfg.Schedule.MinInterval,
		MaxPerDay:      cfg.Schedule.MaxPerDay,
	}, stateRepo, nil, logger)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	runner := reportgen.NewRunner(svc, sched, types.RealClock{}, logger)

	// One-shot mode: generate the requested report and exit.
	if *oneShot != "" {
		defer pool.Close()
		defer archiver.Close()

		rt := types.ReportType(*oneShot)
		if !rt.Valid() {
			return fmt.Errorf("unknown report type %q (want morning, evening or update)", *oneShot)
		}
		rep, err := svc.Generate(ctx, rt, types.TriggerManual)
		if err != nil {
			return fmt.Errorf("generating %s report: %w", rt, err)
		}
		logger.Info("report generated",
			"id", rep.ID,
			"type", rep.ReportType,
			"stage", rep.StageName,
			"compact", rep.Compact,
		)
		return nil
	}

	// HTTP server.
	srv, err := core.NewServer(logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	reportsHandler := handlers.NewReportsHandler(svc, reportRepo, types.RealClock{}, logger)
	routeHandler := handlers.NewRouteHandler(trek, types.RealClock{}, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		reportsHandler.RegisterRoutes,
		routeHandler.RegisterRoutes,
	)

	srv.HealthProbes = []core.HealthProbe{
		&dbProbe{pool: pool},
		&queueProbe{client: sqsClient, queueURL: cfg.AWS.DeliveryQueueStandard},
	}

	srv.OnShutdown(func(context.Context) error {
		pool.Close()
		return nil
	})
	srv.OnShutdown(func(context.Context) error {
		return archiver.Close()
	})

	srv.MountRoutes()

	return serve(ctx, cfg, srv, runner, logger)
}

// newPool builds the pgx connection pool with the configured tuning and
// verifies connectivity before returning.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// serve runs the HTTP server and the scheduler loop until the context is
// cancelled by a shutdown signal, then drains both.
func serve(ctx context.Context, cfg *config.Config, srv *core.Server, runner *reportgen.Runner, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return runner.Loop(gctx, cfg.Schedule.TickInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server resource shutdown error", "error", err)
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
