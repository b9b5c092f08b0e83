package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"heatmap/internal"
	"heatmap/internal/config"
)

const queryTemplate = `
SELECT
    DocumentIdentifier AS url,
    Extras AS extras,
    V2Locations AS raw_locations,
    V2Tone AS raw_tone,
    DATE AS raw_date,
    V2Themes AS raw_themes
FROM ` + "`%s`" + `
WHERE _PARTITIONTIME BETWEEN TIMESTAMP(@start_date) AND TIMESTAMP(@end_date)
  AND V2Themes LIKE @theme_pattern
`

type Connector struct {
	service   *bq.Service
	projectID string
	location  string
	table     string
	theme     string
	timeoutMs int64
	pageSize  int64
	poll      time.Duration
}

const defaultPollInterval = time.Second

// NewConnector builds a BigQuery extractor. Without extra options it
// authenticates with GCP_CREDENTIALS_FILE or application default credentials.
func NewConnector(ctx context.Context, cfg config.Config, opts ...option.ClientOption) (*Connector, error) {
	if err := cfg.Require("GCP_PROJECT", cfg.GCPProject); err != nil {
		return nil, err
	}

	if len(opts) == 0 {
		authOpt, err := tokenSourceOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, authOpt)
	}

	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery service: %w", err)
	}

	return &Connector{
		service:   svc,
		projectID: cfg.GCPProject,
		location:  cfg.BigQueryLocation,
		table:     cfg.GDELTTable,
		theme:     cfg.GDELTThemeFilter,
		timeoutMs: int64(cfg.BigQueryTimeoutMs),
		pageSize:  int64(cfg.BigQueryPageSize),
		poll:      defaultPollInterval,
	}, nil
}

func tokenSourceOption(ctx context.Context, cfg config.Config) (option.ClientOption, error) {
	if strings.TrimSpace(cfg.GCPCredentialsFile) != "" {
		blob, err := os.ReadFile(cfg.GCPCredentialsFile)
		if err != nil {
			return nil, err
		}
		creds, err := google.CredentialsFromJSON(ctx, blob, bq.BigqueryScope)
		if err != nil {
			return nil, fmt.Errorf("parse GCP credentials: %w", err)
		}
		return option.WithTokenSource(creds.TokenSource), nil
	}

	ts, err := google.DefaultTokenSource(ctx, bq.BigqueryScope)
	if err != nil {
		return nil, fmt.Errorf("default GCP credentials: %w", err)
	}
	return option.WithTokenSource(ts), nil
}

func (c *Connector) Extract(ctx context.Context, start, end time.Time) ([]internal.RawRow, error) {
	req := &bq.QueryRequest{
		Query:         fmt.Sprintf(queryTemplate, c.table),
		UseLegacySql:  googleapi.Bool(false),
		ParameterMode: "NAMED",
		QueryParameters: []*bq.QueryParameter{
			dateParam("start_date", start),
			dateParam("end_date", end),
			{
				Name:           "theme_pattern",
				ParameterType:  &bq.QueryParameterType{Type: "STRING"},
				ParameterValue: &bq.QueryParameterValue{Value: "%" + c.theme + "%"},
			},
		},
		Location:   c.location,
		TimeoutMs:  c.timeoutMs,
		MaxResults: c.pageSize,
	}

	resp, err := c.service.Jobs.Query(c.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery query: %w", err)
	}
	if resp.JobReference == nil {
		return nil, fmt.Errorf("bigquery query: missing job reference")
	}

	var out []internal.RawRow
	var fields []string
	pageToken := ""
	complete := resp.JobComplete
	if complete {
		fields = fieldNames(resp.Schema)
		out = appendRows(out, fields, resp.Rows)
		pageToken = resp.PageToken
	}

	job := resp.JobReference
	for !complete || pageToken != "" {
		call := c.service.Jobs.GetQueryResults(job.ProjectId, job.JobId).
			TimeoutMs(c.timeoutMs).
			MaxResults(c.pageSize).
			Context(ctx)
		if job.Location != "" {
			call = call.Location(job.Location)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("bigquery results job=%s: %w", job.JobId, err)
		}
		if !page.JobComplete {
			if err := waitPoll(ctx, c.poll); err != nil {
				return nil, err
			}
			continue
		}
		complete = true
		if fields == nil {
			fields = fieldNames(page.Schema)
		}
		out = appendRows(out, fields, page.Rows)
		pageToken = page.PageToken
	}

	if out == nil {
		out = []internal.RawRow{}
	}
	return out, nil
}

// waitPoll pauses between result polls of a running job.
func waitPoll(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func dateParam(name string, t time.Time) *bq.QueryParameter {
	return &bq.QueryParameter{
		Name:           name,
		ParameterType:  &bq.QueryParameterType{Type: "DATE"},
		ParameterValue: &bq.QueryParameterValue{Value: t.Format("2006-01-02")},
	}
}

func fieldNames(schema *bq.TableSchema) []string {
	if schema == nil {
		return nil
	}
	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = strings.ToLower(f.Name)
	}
	return names
}

func appendRows(out []internal.RawRow, fields []string, rows []*bq.TableRow) []internal.RawRow {
	for _, row := range rows {
		if row == nil {
			continue
		}
		var raw internal.RawRow
		for i, cell := range row.F {
			if i >= len(fields) || cell == nil {
				continue
			}
			value := cellString(cell.V)
			switch fields[i] {
			case "url":
				raw.URL = value
			case "extras":
				raw.Extras = value
			case "raw_locations":
				raw.RawLocations = value
			case "raw_tone":
				raw.RawTone = value
			case "raw_date":
				raw.RawDate = value
			case "raw_themes":
				raw.RawThemes = value
			}
		}
		out = append(out, raw)
	}
	return out
}

// cellString converts a REST cell value; BigQuery encodes scalars as strings.
func cellString(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case json.Number:
		s := t.String()
		return &s
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
