package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"heatmap/internal"
	"heatmap/internal/connectors/file"
)

// TransformFile runs the transform over a raw batch saved on disk.
func TransformFile(ctx context.Context, inputPath string, workers int) ([]internal.Article, TransformStats, error) {
	rows, err := file.NewConnector(inputPath).Extract(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, TransformStats{}, err
	}
	articles, stats := TransformParallel(rows, workers)
	return articles, stats, nil
}

// WriteArticles picks the output format from the file extension.
func WriteArticles(articles []internal.Article, outputPath string) error {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".xlsx":
		return ExportArticlesToXLSX(articles, outputPath)
	case ".jsonl", ".ndjson", ".json":
		return WriteArticlesJSONL(articles, outputPath)
	default:
		return fmt.Errorf("unsupported output format: %s", outputPath)
	}
}

// ResolveOutputPath places a bare file name under outputDir. Paths with a
// directory component are used as given.
func ResolveOutputPath(outputDir, path string) string {
	if outputDir == "" || filepath.IsAbs(path) || filepath.Dir(path) != "." {
		return path
	}
	return filepath.Join(outputDir, path)
}
