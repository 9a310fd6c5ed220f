package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docjobs/internal/async"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/export"
	"github.com/joseph-ayodele/docjobs/internal/extract"
	"github.com/joseph-ayodele/docjobs/internal/llm/providers"
	"github.com/joseph-ayodele/docjobs/internal/ocr"
	"github.com/joseph-ayodele/docjobs/internal/pipeline"
	"github.com/joseph-ayodele/docjobs/internal/registry"
	"github.com/joseph-ayodele/docjobs/internal/repository"
	"github.com/joseph-ayodele/docjobs/internal/server"
	"github.com/joseph-ayodele/docjobs/internal/services/jobs"
	"github.com/joseph-ayodele/docjobs/internal/workspace"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (default $DOCJOBS_CONFIG)")
	flag.Parse()

	// Lifecycle logger
	zl, _ := zap.NewProduction()
	defer func() { _ = zl.Sync() }()
	lifecycle := zl.Sugar()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		lifecycle.Fatalf("config: %v", err)
	}

	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, lifecycle); err != nil {
		lifecycle.Errorw("docjobsd exited with error", "error", err)
		_ = zl.Sync()
		os.Exit(1)
	}
	lifecycle.Info("stopped.")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, lifecycle *zap.SugaredLogger) error {
	var rdb *redis.Client
	if cfg.Store.Backend == "redis" || cfg.Queue.Backend == "redis" {
		var err error
		rdb, err = repository.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	// Status store + registry
	store, closeStore, err := repository.OpenStatusStore(ctx, cfg, rdb, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer closeStore()
	reg := registry.New(store, logger)
	lifecycle.Infow("status store ready", "backend", cfg.Store.Backend)

	// Records outlive the process on a persistent store; fail the ones whose
	// work died with the previous run.
	if cfg.Store.Backend != "memory" {
		n, err := reg.RecoverInterrupted(ctx, cfg.Queue.Backend != "redis")
		if err != nil {
			return fmt.Errorf("recover interrupted jobs: %w", err)
		}
		if n > 0 {
			lifecycle.Warnw("failed jobs interrupted by restart", "count", n)
		}
	}

	// Pipeline dependencies
	arena, err := workspace.NewArena(cfg.Workspace.Dir, logger)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	ocrx := ocr.NewExtractor(ocr.Config{
		TesseractLang: cfg.OCR.Lang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		MaxPages:      cfg.OCR.MaxPages,
		TessdataDir:   cfg.OCR.TessdataDir,
		MinTextChars:  cfg.OCR.MinTextChars,
	}, logger)
	extractor := extract.NewOCRAdapter(ocrx, logger)

	gateway, err := providers.NewGateway(ctx, cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("analysis backend: %w", err)
	}
	lifecycle.Infow("analysis backend ready", "backend", gateway.Backend())

	scorer := newScorer(ctx, cfg.Embedding, logger)
	if !scorer.Available() {
		lifecycle.Warn("similarity scorer unavailable; similarity scores will be 0")
	}

	engine := pipeline.NewEngine(reg, arena, extractor, scorer, gateway, logger)

	// Execution pool
	poolOpts := []async.Option{
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
	}
	var queue async.Queue
	switch cfg.Queue.Backend {
	case "redis":
		queue = async.NewRedisQueue(rdb, cfg.Queue.RedisKey, engine, logger, append(poolOpts, async.WithFailer(reg))...)
	default:
		queue = async.NewProcessorQueue(engine, logger, poolOpts...)
	}
	lifecycle.Infow("queue started", "backend", cfg.Queue.Backend, "workers", cfg.Queue.Workers)

	// Retention sweep
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Store.SweepSchedule, func() {
		n, err := reg.Sweep(ctx, cfg.Store.Retention)
		if err != nil {
			logger.Error("retention.sweep.failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("retention.sweep.ok", "removed", n)
		}
	}); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", cfg.Store.SweepSchedule, err)
	}
	sweeper.Start()

	// HTTP submission gateway
	svc := jobs.NewService(reg, queue, logger)
	handler := server.NewJobsHandler(svc, export.NewService(reg, logger), cfg.Server.MaxUploadMB, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health + reflection
	grpcSrv, health := server.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		lifecycle.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		lifecycle.Infof("gRPC health serving on %s", cfg.Server.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	lifecycle.Info("shutting down...")
	health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lifecycle.Warnw("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
	<-sweeper.Stop().Done()
	queue.Shutdown(shutdownCtx)
	return runErr
}
