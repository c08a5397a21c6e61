package main

import (
	"context"
	"errors"
	"os"
	"time"

	"casaspese/internal/amqp"
	"casaspese/internal/backend"
	"casaspese/internal/cli"
	applog "casaspese/internal/log"
	gsheet "casaspese/internal/sheets/google"
	"casaspese/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := applog.Setup("text", "info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := applog.Setup(cfg.LogFormat, cfg.LogLevel).WithComponent("worker")

	logger.Info("Starting export worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.SheetsSpreadsheetID == "" {
		logger.Error("SHEETS_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	result, err := backend.NewFactory(logger.Logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := result.Cleanup(cleanupCtx); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	sheetsClient, err := gsheet.New(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(result.Store, sheetsClient)

	err = amqpClient.ConsumeExpenseCreated(ctx, func(msg *amqp.ExpenseCreatedMessage) error {
		return exportWorker.HandleExpenseCreated(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
