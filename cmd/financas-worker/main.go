// Command financas-worker exports new transactions to a Google spreadsheet.
// It consumes the sync queue and periodically sweeps rows whose message
// was lost.
package main

import (
	"context"
	"errors"
	"fmt"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/log"
	gsheet "financas/internal/sheets/google"
	"financas/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}
	logger.Info("Starting financas-worker", log.FieldOperation, log.OpStartup)

	if err := run(cfg, logger); err != nil {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(cfg *config.Config, logger *log.Logger) error {
	if !cfg.SheetsEnabled() {
		return errors.New("GOOGLE_SPREADSHEET_ID is required by the worker")
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("google sheets client: %w", err)
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		// Appends still work without a header row.
		logger.Error("Failed to write sheet header", log.FieldError, err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("amqp client: %w", err)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("No AMQP_URL provided - relying on the periodic sweep only")
	}

	w := worker.NewSyncWorker(repo, sheet, cfg.SyncBatchSize, logger)
	return w.Run(ctx, consumer, cfg.SyncInterval)
}
