package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"heatmap/internal"
	"heatmap/internal/connectors"
)

// Connector reads raw GKG rows from a local JSONL, CSV or XLSX file. The
// extraction window is not applied; files are assumed to hold one batch.
type Connector struct {
	path string
}

func NewConnector(path string) *Connector {
	return &Connector{path: path}
}

func (c *Connector) Extract(ctx context.Context, _, _ time.Time) ([]internal.RawRow, error) {
	blob, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".jsonl", ".ndjson", ".json":
		return ParseJSONLines(bytes.NewReader(blob))
	case ".csv":
		return ParseCSV(bytes.NewReader(blob))
	case ".xlsx":
		return ParseXLSX(blob)
	default:
		return nil, fmt.Errorf("%w: %s", connectors.ErrUnsupportedFormat, c.path)
	}
}

var columnAliases = map[string]string{
	"url":                "url",
	"documentidentifier": "url",
	"extras":             "extras",
	"raw_locations":      "raw_locations",
	"v2locations":        "raw_locations",
	"raw_tone":           "raw_tone",
	"v2tone":             "raw_tone",
	"raw_date":           "raw_date",
	"date":               "raw_date",
	"raw_themes":         "raw_themes",
	"v2themes":           "raw_themes",
}

func canonicalColumn(name string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(name))]
}

func setField(row *internal.RawRow, column string, value *string) {
	switch column {
	case "url":
		row.URL = value
	case "extras":
		row.Extras = value
	case "raw_locations":
		row.RawLocations = value
	case "raw_tone":
		row.RawTone = value
	case "raw_date":
		row.RawDate = value
	case "raw_themes":
		row.RawThemes = value
	}
}

// ParseJSONLines decodes one JSON object per line. Unknown keys are ignored;
// null values stay absent.
func ParseJSONLines(r io.Reader) ([]internal.RawRow, error) {
	out := []internal.RawRow{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		var row internal.RawRow
		for key, value := range obj {
			if column := canonicalColumn(key); column != "" {
				setField(&row, column, toStringPtr(value))
			}
		}
		out = append(out, row)
	}
	return out, scanner.Err()
}

// ParseCSV reads a header row followed by data rows. Empty cells are absent.
func ParseCSV(r io.Reader) ([]internal.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return rowsFromTable(records)
}

// ParseXLSX reads the first sheet with a header row.
func ParseXLSX(content []byte) ([]internal.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []internal.RawRow{}, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return rowsFromTable(records)
}

func rowsFromTable(records [][]string) ([]internal.RawRow, error) {
	out := []internal.RawRow{}
	if len(records) == 0 {
		return out, nil
	}

	columns := make([]string, len(records[0]))
	known := 0
	for i, h := range records[0] {
		columns[i] = canonicalColumn(strings.TrimPrefix(h, "\ufeff"))
		if columns[i] != "" {
			known++
		}
	}
	if known == 0 {
		return nil, errors.New("header row has no known GKG columns")
	}

	for _, record := range records[1:] {
		var row internal.RawRow
		for i, cell := range record {
			if i >= len(columns) || columns[i] == "" || cell == "" {
				continue
			}
			value := cell
			setField(&row, columns[i], &value)
		}
		out = append(out, row)
	}
	return out, nil
}

func toStringPtr(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case json.Number:
		s := t.String()
		return &s
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
