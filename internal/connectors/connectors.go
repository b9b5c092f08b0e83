package connectors

import (
	"context"
	"errors"
	"time"

	"heatmap/internal"
)

var ErrUnsupportedFormat = errors.New("unsupported raw row format")

// Extractor returns the GKG rows published within [start, end].
type Extractor interface {
	Extract(ctx context.Context, start, end time.Time) ([]internal.RawRow, error)
}

// DefaultWindow is the extraction window used when none is given: from
// lookbackDays ago up to yesterday.
func DefaultWindow(now time.Time, lookbackDays int) (time.Time, time.Time) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -lookbackDays), today.AddDate(0, 0, -1)
}
