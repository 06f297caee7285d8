package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pilab-dev/creator-insights/config"
	"github.com/pilab-dev/creator-insights/internal/app"
	"github.com/pilab-dev/creator-insights/internal/metrics"
	"github.com/pilab-dev/creator-insights/internal/scheduler"
	"github.com/pilab-dev/creator-insights/internal/server"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger := log.NewZerologAdapter(log.ParseLevel(cfg.LogLevel), cfg.LogPretty)
	bg := context.Background()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal(bg, "Invalid configuration", err)
	}
	appLogger.Info(bg, "Starting creator-insights server", log.Fields{
		"http_addr":     cfg.HTTPAddr,
		"mongo_db_name": cfg.MongoDBName,
		"state_store":   cfg.StateStore,
		"sync_enabled":  cfg.Sync.Enabled,
		"log_level":     cfg.LogLevel,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(bg, "Failed to initialize TracerProvider", err)
	}
	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(bg, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(bg, "Failed to initialize application", err)
	}

	api, limiter := application.API()
	httpServer := server.NewHTTPServer(cfg, appLogger, api)

	var sched *scheduler.Scheduler
	if cfg.Sync.Enabled {
		sched = scheduler.New(cfg.Sync.RunTimeout, appLogger)
		err := sched.AddJob("sync_all_accounts", cfg.Sync.Schedule, func(ctx context.Context) error {
			_, err := application.Sync.SyncAllAccounts(ctx)
			return err
		})
		if err != nil {
			appLogger.Fatal(bg, "Failed to schedule sync", err)
		}
		sched.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info(gctx, "HTTP server listening", log.Fields{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(bg, "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(bg, shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
		}
		if sched != nil {
			select {
			case <-sched.Stop().Done():
			case <-shutdownCtx.Done():
				appLogger.Warn(shutdownCtx, "Scheduled sync still running at shutdown")
			}
		}
		limiter.Stop()
		if err := application.Close(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "Failed to close connections", err)
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Fatal(bg, "Server stopped with error", err)
	}
	appLogger.Info(bg, "Server gracefully stopped")
}
