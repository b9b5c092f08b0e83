package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"heatmap/internal/config"
	"heatmap/internal/connectors"
	bqconnector "heatmap/internal/connectors/bigquery"
	"heatmap/internal/logger"
	"heatmap/internal/pipeline"
	"heatmap/internal/scheduler"
	"heatmap/internal/storage"
	"heatmap/internal/supabase"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := logger.NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	extractor, err := bqconnector.NewConnector(ctx, cfg)
	must(err)

	var store pipeline.Store
	if cfg.StoreDriver == "supabase" {
		store, err = supabase.NewClient(cfg)
		must(err)
	} else {
		driver, dsn, err := cfg.StoreDSN()
		must(err)
		db, err := storage.OpenDriver(driver, dsn)
		must(err)
		defer db.Close()
		db.SetBatchSize(cfg.LoadBatchSize)
		store = db
	}

	runner := pipeline.NewRunner(cfg, extractor, store, log).
		WithSnapshots(connectors.NewSnapshotService(cfg.RawDir))
	svc := scheduler.NewService(runner, cfg, log)

	log.Info("scheduler started", "interval_hours", cfg.ScheduleIntervalHours, "store", cfg.StoreDriver)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
