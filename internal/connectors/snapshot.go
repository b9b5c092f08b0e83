package connectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"heatmap/internal"
)

// SnapshotService keeps a copy of every extracted batch on disk as JSONL so a
// run can be replayed with the file connector.
type SnapshotService struct {
	rawDir string
}

type SnapshotResult struct {
	Path    string
	Rows    int
	Written bool
}

func NewSnapshotService(rawDir string) *SnapshotService {
	return &SnapshotService{rawDir: rawDir}
}

// Store names the file by window and content hash; an identical batch is not
// rewritten.
func (s *SnapshotService) Store(rows []internal.RawRow, start, end time.Time) (SnapshotResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return SnapshotResult{}, err
		}
	}

	hashBytes := sha256.Sum256(buf.Bytes())
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return SnapshotResult{}, err
	}

	name := fmt.Sprintf("gkg_%s_%s_%s.jsonl", start.Format("20060102"), end.Format("20060102"), hash[:12])
	rawPath := filepath.Join(s.rawDir, name)
	result := SnapshotResult{Path: rawPath, Rows: len(rows)}
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, buf.Bytes(), 0o644); err != nil {
			return SnapshotResult{}, err
		}
		result.Written = true
	}
	return result, nil
}
