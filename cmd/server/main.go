package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diversifia/ordersync/internal/api"
	"diversifia/ordersync/internal/app"
	"diversifia/ordersync/internal/config"
	"diversifia/ordersync/internal/jobs"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/routes"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Order sync starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
		"store", cfg.Sync.TargetStore,
		"interval", cfg.Sync.Interval.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	deps, err := app.InitDependencies(ctx, cfg, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err)
	}
	defer deps.Close()

	upSince := time.Now()
	handlers := api.NewHandlers(deps.Sync, api.Settings{
		Store:       deps.Store.Name(),
		DocumentKey: cfg.Sync.DocumentKey,
		Interval:    cfg.Sync.Interval,
	}, upSince)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.RegisterRoutes(handlers, metricsReg, prometheus.DefaultGatherer, cfg.HTTP),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var purger jobs.HistoryPurger
	if deps.SyncRuns != nil {
		purger = deps.SyncRuns
	}
	syncJob := jobs.NewOrderSyncJob(deps.Sync, purger, cfg.Sync.HistoryRetention)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		syncJob.RunScheduled(gctx, cfg.Sync.Interval)
		return nil
	})

	g.Go(func() error {
		logging.Info("Server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.Error("Order sync stopped with error", "error", err)
		os.Exit(1)
	}
	logging.Info("Order sync stopped")
}
