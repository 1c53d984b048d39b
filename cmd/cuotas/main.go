package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cuotas/internal/cli"
	"cuotas/internal/extract"
	apphttp "cuotas/internal/http"
	"cuotas/internal/log"
	"cuotas/internal/services"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger("cuotas", cfg)
	cli.MustValidate(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.ChangePublisher
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	var extractor extract.Extractor
	if cfg.ExtractionEnabled() {
		gemini, err := extract.NewGeminiExtractor(context.Background(), extract.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			logger.Warn("Statement extraction disabled", log.FieldError, err.Error())
		} else {
			extractor = gemini
			defer gemini.Close()
			logger.Info("Statement extraction enabled", "model", cfg.GeminiModel)
		}
	}

	purchases := services.NewPurchaseService(repo, publisher, logger)
	reports := services.NewReportService(repo, logger)
	statements := services.NewStatementService(extractor, logger)

	srv := apphttp.NewServer(":"+cfg.Port, purchases, reports, statements, apphttp.Options{
		Logger:    logger,
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 90 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting cuotas server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"export_backend", cfg.ExportBackend,
		"amqp", amqpClient != nil,
		"extraction", extractor != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
