package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/phototranslate/internal/app"
	"github.com/joseph-ayodele/phototranslate/internal/async"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/ingest"
	"github.com/joseph-ayodele/phototranslate/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if v, err := a.OCRVersion(ctx); err != nil {
		logger.Warn("tesseract not available", "error", err)
	} else {
		logger.Info("tesseract ready", "version", v)
	}

	queue, err := startQueue(cfg.Queue, a, logger)
	if err != nil {
		logger.Error("failed to start queue", "error", err)
		os.Exit(1)
	}

	if len(cfg.Watch.Roots) > 0 {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       cfg.Watch.Roots,
			InitialScan: cfg.Watch.Initial,
			SkipHidden:  true,
			Debounce:    cfg.Watch.Debounce,
		}, logger)
		if err != nil {
			logger.Error("failed to start folder watcher", "roots", cfg.Watch.Roots, "error", err)
			os.Exit(1)
		}
		go ingest.Forward(ctx, events, ingest.QueueSubmitter{Queue: queue}, logger)
		go func() {
			for err := range errs {
				logger.Warn("watcher.error", "error", err)
			}
		}()
		logger.Info("watching folders", "roots", cfg.Watch.Roots)
	}

	deps := a.ServerDeps()
	deps.Queue = queue
	api := server.NewServer(deps, cfg.Server, logger)

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpSrv = api.HTTPServer(ctx)
		go func() {
			logger.Info("phototranslate http listening", "addr", cfg.Server.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve error", "error", err)
				stop()
			}
		}()
	}

	var grpcStop func()
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer, healthServer := server.NewGRPCServer(a.Processor, cfg.Server, logger)
		grpcStop = func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		}
		go func() {
			logger.Info("phototranslate grpc listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	if grpcStop != nil {
		grpcStop()
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

// startQueue prefers the Redis backed queue when REDIS_URL is set and falls back to the
// in-process worker pool.
func startQueue(cfg common.QueueConfig, a *app.App, logger *slog.Logger) (async.Queue, error) {
	handle := async.ScanFile(a.Processor)
	if cfg.RedisURL != "" {
		rq, err := async.NewRedisQueue(async.RedisQueueConfig{
			RedisURL:       cfg.RedisURL,
			QueueName:      cfg.RedisQueue,
			Concurrency:    cfg.Workers,
			ProcessTimeout: cfg.ProcessTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := rq.Start(handle); err != nil {
			return nil, err
		}
		logger.Info("redis queue started", "queue", cfg.RedisQueue, "workers", cfg.Workers)
		return rq, nil
	}
	q := async.NewProcessorQueue(handle, logger,
		async.WithWorkers(cfg.Workers),
		async.WithQueueSize(cfg.Size),
		async.WithProcessTimeout(orDefault(cfg.ProcessTimeout, 3*time.Minute)),
	)
	logger.Info("in-process queue started", "workers", cfg.Workers, "size", cfg.Size)
	return q, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
