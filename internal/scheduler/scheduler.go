package scheduler

import (
	"context"
	"time"

	"heatmap/internal"
	"heatmap/internal/config"
	"heatmap/internal/logger"
)

// PipelineRunner runs one extract/transform/load/cleanup cycle.
type PipelineRunner interface {
	Run(ctx context.Context, start, end time.Time) (internal.RunSummary, error)
}

type Service struct {
	runner     PipelineRunner
	interval   time.Duration
	runOnStart bool
	log        *logger.Logger
}

func NewService(runner PipelineRunner, cfg config.Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	hours := cfg.ScheduleIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &Service{
		runner:     runner,
		interval:   time.Duration(hours) * time.Hour,
		runOnStart: cfg.ScheduleRunOnStart,
		log:        log,
	}
}

// Run blocks until ctx is cancelled. A failed cycle is logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	if s.runOnStart {
		s.runCycle(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	summary, err := s.runner.Run(ctx, time.Time{}, time.Time{})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("scheduled run failed", "error", err)
		return
	}
	s.log.Info("scheduled run done",
		"run_id", summary.RunID,
		"window", summary.StartDate+".."+summary.EndDate,
		"extracted", summary.Extracted,
		"loaded", summary.Loaded,
		"deleted", summary.Deleted,
	)
}
