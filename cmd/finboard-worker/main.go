package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	mem "finboard/internal/sheets/memory"
	"finboard/internal/worker"
)

// statsInterval is how often the worker logs its counters.
const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting finboard-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	var sink sheets.ActivityWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleActivitySheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		sink = client
		logger.Info("Google Sheets activity mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleActivitySheetName)
	} else {
		sink = mem.New()
		logger.Info("Google Sheets disabled - mirroring activity in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	activity := worker.NewActivityWorker(sink)

	g, gctx := errgroup.WithContext(applog.NewContext(ctx, logger))
	g.Go(func() error {
		return amqpClient.ConsumeChanges(gctx, activity.HandleChangeMessage)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				mirrored, failed := activity.Stats()
				logger.Info("Activity mirror stats", "mirrored", mirrored, "failed", failed)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
