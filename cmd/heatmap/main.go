package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"heatmap/internal/config"
	"heatmap/internal/connectors"
	bqconnector "heatmap/internal/connectors/bigquery"
	fileconnector "heatmap/internal/connectors/file"
	"heatmap/internal/geo"
	"heatmap/internal/logger"
	"heatmap/internal/pipeline"
	"heatmap/internal/report"
	"heatmap/internal/storage"
	"heatmap/internal/supabase"
	"heatmap/internal/web"
)

var (
	cfg config.Config
	log *logger.Logger
)

func main() {
	var err error
	cfg, err = config.Load()
	must(err)
	log = logger.NewLogger(cfg.LogLevel)

	rootCmd := &cobra.Command{
		Use:           "heatmap",
		Short:         "GDELT AI news sentiment pipeline",
		Long:          `Extracts AI-themed GDELT GKG rows, normalizes them into articles, loads them into a store and serves a per-country sentiment dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createExtractCmd())
	rootCmd.AddCommand(createTransformCmd())
	rootCmd.AddCommand(createCleanupCmd())
	rootCmd.AddCommand(createReportCmd())
	rootCmd.AddCommand(createServeCmd())

	must(rootCmd.Execute())
}

func createRunCmd() *cobra.Command {
	var start, end, input string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run extract, transform, load and cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, endDate, err := parseWindow(start, end)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			extractor, err := makeExtractor(ctx, input)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			runner := pipeline.NewRunner(cfg, extractor, store, log).
				WithSnapshots(connectors.NewSnapshotService(cfg.RawDir))
			summary, err := runner.Run(ctx, startDate, endDate)
			if err != nil {
				return err
			}
			fmt.Printf("run done id=%s window=%s..%s extracted=%d transformed=%d loaded=%d deleted=%d\n",
				summary.RunID, summary.StartDate, summary.EndDate, summary.Extracted, summary.Transformed, summary.Loaded, summary.Deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start YYYY-MM-DD (default: today minus EXTRACT_LOOKBACK_DAYS)")
	cmd.Flags().StringVar(&end, "end", "", "window end YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&input, "input", "", "read raw rows from a .jsonl/.csv/.xlsx file instead of BigQuery")
	return cmd
}

func createExtractCmd() *cobra.Command {
	var start, end, out string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract raw GKG rows from BigQuery into a JSONL snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, endDate, err := parseWindow(start, end)
			if err != nil {
				return err
			}
			if startDate.IsZero() || endDate.IsZero() {
				defStart, defEnd := connectors.DefaultWindow(time.Now(), cfg.ExtractLookbackDays)
				if startDate.IsZero() {
					startDate = defStart
				}
				if endDate.IsZero() {
					endDate = defEnd
				}
			}

			ctx := cmd.Context()
			extractor, err := bqconnector.NewConnector(ctx, cfg)
			if err != nil {
				return err
			}
			rows, err := extractor.Extract(ctx, startDate, endDate)
			if err != nil {
				return err
			}

			dir := out
			if strings.TrimSpace(dir) == "" {
				dir = cfg.RawDir
			}
			result, err := connectors.NewSnapshotService(dir).Store(rows, startDate, endDate)
			if err != nil {
				return err
			}
			fmt.Printf("extract done rows=%d output=%s\n", result.Rows, result.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "window end YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default: RAW_DIR)")
	return cmd
}

func createTransformCmd() *cobra.Command {
	var input, out string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Normalize a raw batch file without loading it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--input is required")
			}
			articles, stats, err := pipeline.TransformFile(cmd.Context(), input, cfg.TransformWorkers)
			if err != nil {
				return err
			}
			fmt.Printf("transform done input=%d rejected_tone=%d rejected_date=%d rejected_country=%d duplicates=%d output=%d\n",
				stats.Input, stats.RejectedTone, stats.RejectedDate, stats.RejectedCountry, stats.Duplicates, stats.Output)

			if strings.TrimSpace(out) == "" {
				return nil
			}
			path := pipeline.ResolveOutputPath(cfg.OutputDir, out)
			if err := pipeline.WriteArticles(articles, path); err != nil {
				return err
			}
			fmt.Printf("wrote %d articles to %s\n", len(articles), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "raw batch (.jsonl, .csv or .xlsx)")
	cmd.Flags().StringVar(&out, "out", "", "output path (.xlsx or .jsonl); bare file names go under OUTPUT_DIR")
	return cmd
}

func createCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete articles older than RETENTION_DAYS",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			deleted, err := pipeline.NewRunner(cfg, nil, store, log).Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cleanup done deleted=%d retention_days=%d\n", deleted, cfg.RetentionDays)
			return nil
		},
	}
}

func createReportCmd() *cobra.Command {
	var start, end, xlsxPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print average sentiment per country",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, endDate, err := parseWindow(start, end)
			if err != nil {
				return err
			}
			if endDate.IsZero() {
				endDate = today()
			}
			if startDate.IsZero() {
				startDate = endDate.AddDate(0, 0, -30)
			}

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			rows, err := store.SentimentByCountry(cmd.Context(), startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
			if err != nil {
				return err
			}
			rows = geo.Default().Annotate(rows)
			if err := report.WriteSentimentTable(os.Stdout, rows); err != nil {
				return err
			}

			if strings.TrimSpace(xlsxPath) != "" {
				path := pipeline.ResolveOutputPath(cfg.OutputDir, xlsxPath)
				if err := pipeline.ExportSentimentToXLSX(rows, path); err != nil {
					return err
				}
				fmt.Printf("exported %d rows to %s\n", len(rows), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start YYYY-MM-DD (default: 30 days before end)")
	cmd.Flags().StringVar(&end, "end", "", "window end YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the table to this .xlsx file; bare file names go under OUTPUT_DIR")
	return cmd
}

func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sentiment API and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := web.NewServer(cfg, store, log)
			fmt.Printf("serving on http://%s\n", srv.Addr())
			return srv.Start(ctx)
		},
	}
}

func makeExtractor(ctx context.Context, input string) (connectors.Extractor, error) {
	if strings.TrimSpace(input) != "" {
		return fileconnector.NewConnector(input), nil
	}
	return bqconnector.NewConnector(ctx, cfg)
}

// openStore returns the configured store and a func releasing it.
func openStore() (pipeline.Store, func(), error) {
	if cfg.StoreDriver == "supabase" {
		client, err := supabase.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}

	driver, dsn, err := cfg.StoreDSN()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.OpenDriver(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetBatchSize(cfg.LoadBatchSize)
	return db, func() { _ = db.Close() }, nil
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	var startDate, endDate time.Time
	var err error
	if strings.TrimSpace(start) != "" {
		if startDate, err = time.Parse("2006-01-02", start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
	}
	if strings.TrimSpace(end) != "" {
		if endDate, err = time.Parse("2006-01-02", end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
	}
	if !startDate.IsZero() && !endDate.IsZero() && startDate.After(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start %s is after --end %s", start, end)
	}
	return startDate, endDate, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
