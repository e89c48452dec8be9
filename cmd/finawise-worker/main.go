package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finawise/internal/aggregate"
	"finawise/internal/amqp"
	"finawise/internal/cli"
	gexport "finawise/internal/export/google"
	"finawise/internal/services"
	"finawise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting finawise-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg)
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	if result.Auditor == nil {
		logger.Error("Selected backend does not track audit state, worker cannot run", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Initialize AMQP client for consuming messages
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Initialize Google Sheets exporter (optional)
	var exporter *gexport.Exporter
	if cfg.SheetsExportEnabled() {
		exporter, err = gexport.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditWorker := worker.NewAuditWorker(result.Auditor, cfg.AuditBatchSize)
	reports := services.NewReportService(result.Backend, result.Backend)

	// On startup, drain any audit backlog that might have been missed
	logger.Info("Performing startup audit check...")
	if err := auditWorker.StartupAuditCheck(ctx); err != nil {
		logger.Error("Failed startup audit check", "error", err)
		// Don't exit - continue with normal operation
	}

	// Start message consumption
	go func() {
		handler := func(msg *amqp.TransactionIngestedMessage) error {
			return auditWorker.HandleIngestMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeTransactionIngested(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic backlog scan for missed messages, plus the daily export
	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	exportTicker := time.NewTicker(24 * time.Hour)
	defer exportTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := auditWorker.ProcessPendingAudits(ctx); err != nil {
					logger.Error("Periodic audit failed", "error", err)
				}
			case <-exportTicker.C:
				if exporter == nil {
					continue
				}
				points := reports.MonthlyTrend(ctx, aggregate.Criteria{})
				if err := exporter.ExportMonthlySeries(ctx, points); err != nil {
					logger.Error("Monthly series export failed", "error", err)
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
