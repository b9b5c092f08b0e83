package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"heatmap/internal"
	"heatmap/internal/config"
	"heatmap/internal/connectors"
	"heatmap/internal/logger"
)

// Store is the durable destination for normalized articles.
type Store interface {
	UpsertArticles(ctx context.Context, articles []internal.Article) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff string) (int, error)
	SentimentByCountry(ctx context.Context, start, end string) ([]internal.CountrySentiment, error)
}

// RunRecorder is implemented by stores that keep a run log.
type RunRecorder interface {
	InsertRun(ctx context.Context, summary internal.RunSummary) error
}

type Runner struct {
	cfg       config.Config
	extractor connectors.Extractor
	store     Store
	snapshots *connectors.SnapshotService
	log       *logger.Logger
	now       func() time.Time
}

func NewRunner(cfg config.Config, extractor connectors.Extractor, store Store, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// WithSnapshots keeps a JSONL copy of each extracted batch.
func (r *Runner) WithSnapshots(svc *connectors.SnapshotService) *Runner {
	r.snapshots = svc
	return r
}

// Run executes extract, transform, load and cleanup for [start, end]. A zero
// start or end selects the default window.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (internal.RunSummary, error) {
	if start.IsZero() || end.IsZero() {
		defStart, defEnd := connectors.DefaultWindow(r.now(), r.cfg.ExtractLookbackDays)
		if start.IsZero() {
			start = defStart
		}
		if end.IsZero() {
			end = defEnd
		}
	}
	if start.After(end) {
		return internal.RunSummary{}, fmt.Errorf("invalid window: start %s after end %s", start.Format(dateLayout), end.Format(dateLayout))
	}

	summary := internal.RunSummary{
		RunID:     uuid.NewString(),
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		TimingsMs: map[string]float64{},
	}
	log := r.log.With("run_id", summary.RunID)
	total := time.Now()

	step := time.Now()
	rows, err := r.extractor.Extract(ctx, start, end)
	if err != nil {
		return summary, fmt.Errorf("extract: %w", err)
	}
	summary.Extracted = len(rows)
	summary.TimingsMs["extractMs"] = elapsedMs(step)
	log.Info("extract done", "rows", len(rows), "start", summary.StartDate, "end", summary.EndDate)

	if r.snapshots != nil {
		snap, err := r.snapshots.Store(rows, start, end)
		if err != nil {
			log.Warn("snapshot failed", "error", err)
		} else {
			log.Debug("snapshot stored", "path", snap.Path, "written", snap.Written)
		}
	}

	step = time.Now()
	articles, stats := TransformParallel(rows, r.cfg.TransformWorkers)
	summary.Transformed = len(articles)
	summary.TimingsMs["transformMs"] = elapsedMs(step)
	log.Info("transform done",
		"input", stats.Input,
		"rejected_tone", stats.RejectedTone,
		"rejected_date", stats.RejectedDate,
		"rejected_country", stats.RejectedCountry,
		"duplicates", stats.Duplicates,
		"output", stats.Output,
	)

	step = time.Now()
	loaded, err := r.store.UpsertArticles(ctx, articles)
	if err != nil {
		return summary, fmt.Errorf("load: %w", err)
	}
	summary.Loaded = loaded
	summary.TimingsMs["loadMs"] = elapsedMs(step)
	log.Info("load done", "upserted", loaded)

	step = time.Now()
	deleted, err := r.Cleanup(ctx)
	if err != nil {
		return summary, err
	}
	summary.Deleted = deleted
	summary.TimingsMs["cleanupMs"] = elapsedMs(step)
	summary.TimingsMs["totalMs"] = elapsedMs(total)

	if rec, ok := r.store.(RunRecorder); ok {
		if err := rec.InsertRun(ctx, summary); err != nil {
			log.Warn("record run failed", "error", err)
		}
	}
	log.Info("run complete", "loaded", summary.Loaded, "deleted", summary.Deleted, "total_ms", summary.TimingsMs["totalMs"])
	return summary, nil
}

// Cleanup removes articles older than the retention window.
func (r *Runner) Cleanup(ctx context.Context) (int, error) {
	cutoff := RetentionCutoff(r.now(), r.cfg.RetentionDays)
	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup before %s: %w", cutoff, err)
	}
	r.log.Info("cleanup done", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

// RetentionCutoff returns the first published_date that is kept.
func RetentionCutoff(now time.Time, retentionDays int) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -retentionDays).Format(dateLayout)
}

const dateLayout = "2006-01-02"

func elapsedMs(since time.Time) float64 {
	return float64(time.Since(since).Microseconds()) / 1000
}
