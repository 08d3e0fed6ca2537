package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"printum/internal/config"
	"printum/internal/slicer/artifact"
	"printum/internal/slicer/controller"
	"printum/internal/slicer/engine"
	"printum/internal/slicer/health"
	"printum/internal/slicer/observer"
	"printum/internal/slicer/service"
	"printum/internal/slicer/upload"
	"printum/internal/slicer/workspace"
	"printum/pkg/utils/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultDotEnvPath = ".env"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to an optional YAML config file")
	dotEnvPath := flag.String("env-file", defaultDotEnvPath, "Path to an optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configPath, DotEnvFile: *dotEnvPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error(context.Background(), "slice service failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	ws := workspace.New(cfg.Upload.Dir)
	if err := ws.EnsureDir(); err != nil {
		return err
	}

	var metrics observer.MetricsRecorder = observer.NoopMetricsRecorder{}
	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := observer.NewPrometheusRecorder(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		metrics = recorder
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	admission := engine.NewSemaphoreAdmission(int64(cfg.Engine.MaxConcurrent), cfg.AdmissionWait())
	executor, err := engine.NewExecutor(engine.Config{
		Binary:   cfg.Engine.Binary,
		BaseArgs: cfg.BaseArgs(),
		Timeout:  cfg.SliceTimeout(),
	}, admission, metrics)
	if err != nil {
		return fmt.Errorf("init engine executor: %w", err)
	}

	gate := upload.NewGate(cfg.AllowedExtensions(), cfg.MaxUploadBytes())
	sliceService := service.NewSliceService(gate, ws, executor, metrics)
	probe := health.NewProbe(cfg.Engine.Binary)
	sliceController := controller.NewSliceController(sliceService, artifact.NewStreamer(cfg.Server.ResponseGzip, cfg.WriteTimeout()), probe)

	if report := probe.Check(ctx); !report.Ready {
		logger.Warn(ctx, "engine binary not ready at startup", zap.String("binary", report.BinaryPath), zap.String("reason", report.Message))
	}

	httpServer := buildHTTPServer(cfg, sliceController, metricsHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "slice service listening",
			zap.String("addr", httpServer.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("engine", cfg.Engine.Binary),
			zap.String("upload_dir", cfg.Upload.Dir),
			zap.Int("max_concurrent", cfg.Engine.MaxConcurrent),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	shutdownTimeout, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownTimeout); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return serveErr
}
