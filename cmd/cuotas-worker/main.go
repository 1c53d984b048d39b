package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cuotas/internal/backend"
	"cuotas/internal/cli"
	"cuotas/internal/log"
	"cuotas/internal/services"
	"cuotas/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger("cuotas-worker", cfg)
	cli.MustValidate(logger, cfg)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	exportBackend, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", log.FieldError, err.Error(), "backend", backendCfg.Type.String())
		os.Exit(1)
	}
	if exportBackend.Cleanup != nil {
		defer exportBackend.Cleanup()
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Error("Cannot start worker without AMQP")
		os.Exit(1)
	}
	defer amqpClient.Close()

	reports := services.NewReportService(repo, logger)
	syncWorker := worker.NewSyncWorker(reports, exportBackend.Backend, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Performing startup sync")
		if err := syncWorker.SyncFromCurrentMonth(gctx); err != nil {
			logger.Warn("Startup sync incomplete", log.FieldError, err.Error())
		}
		return nil
	})
	g.Go(func() error {
		err := amqpClient.ConsumePurchaseChanges(gctx, syncWorker.HandlePurchaseChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return syncWorker.PeriodicResync(gctx, cfg.SyncInterval)
	})

	logger.Info("Starting cuotas-worker", log.FieldOperation, log.OpStartup, "sync_interval", cfg.SyncInterval.String())
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
