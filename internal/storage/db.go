package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"heatmap/internal"
)

const defaultBatchSize = 500

// LastRunKey holds the id of the most recent recorded run.
const LastRunKey = "pipeline.last_run"

type DB struct {
	conn      *sql.DB
	driver    string
	batchSize int
}

// Open opens (and creates) the SQLite database at path.
func Open(path string) (*DB, error) {
	return OpenDriver("sqlite", path)
}

// OpenDriver opens a "sqlite" file database or a "postgres" DSN and ensures
// the schema exists.
func OpenDriver(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn, driver: driver, batchSize: defaultBatchSize}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// SetBatchSize sets how many articles are written per transaction.
func (d *DB) SetBatchSize(n int) {
	if n <= 0 {
		n = defaultBatchSize
	}
	d.batchSize = n
}

func (d *DB) init() error {
	schema := sqliteSchema
	if d.driver == "postgres" {
		schema = postgresSchema
	}
	_, err := d.conn.Exec(schema)
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
  url TEXT NOT NULL,
  title TEXT,
  source_name TEXT,
  avg_tone REAL NOT NULL,
  published_date TEXT NOT NULL,
  themes TEXT NOT NULL DEFAULT '[]',
  specific_location_type INTEGER,
  specific_location_name TEXT,
  specific_country_code TEXT,
  specific_adm1_code TEXT,
  specific_latitude REAL,
  specific_longitude REAL,
  mentioned_location_type INTEGER,
  mentioned_location_name TEXT,
  mentioned_country_code TEXT,
  mentioned_adm1_code TEXT,
  mentioned_latitude REAL,
  mentioned_longitude REAL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (url, published_date)
);
CREATE INDEX IF NOT EXISTS idx_articles_published_date ON articles(published_date);
CREATE INDEX IF NOT EXISTS idx_articles_mentioned_country ON articles(mentioned_country_code);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  start_date TEXT NOT NULL,
  end_date TEXT NOT NULL,
  counts_json TEXT NOT NULL,
  timings_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
  url TEXT NOT NULL,
  title TEXT,
  source_name TEXT,
  avg_tone DOUBLE PRECISION NOT NULL,
  published_date DATE NOT NULL,
  themes JSONB NOT NULL DEFAULT '[]',
  specific_location_type INTEGER,
  specific_location_name TEXT,
  specific_country_code TEXT,
  specific_adm1_code TEXT,
  specific_latitude DOUBLE PRECISION,
  specific_longitude DOUBLE PRECISION,
  mentioned_location_type INTEGER,
  mentioned_location_name TEXT,
  mentioned_country_code TEXT,
  mentioned_adm1_code TEXT,
  mentioned_latitude DOUBLE PRECISION,
  mentioned_longitude DOUBLE PRECISION,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (url, published_date)
);
CREATE INDEX IF NOT EXISTS idx_articles_published_date ON articles(published_date);
CREATE INDEX IF NOT EXISTS idx_articles_mentioned_country ON articles(mentioned_country_code);

CREATE TABLE IF NOT EXISTS runs (
  id BIGSERIAL PRIMARY KEY,
  run_id TEXT NOT NULL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  counts_json JSONB NOT NULL,
  timings_json JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// rebind rewrites ? placeholders to $n for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const upsertArticleSQL = `
INSERT INTO articles (
  url, title, source_name, avg_tone, published_date, themes,
  specific_location_type, specific_location_name, specific_country_code, specific_adm1_code, specific_latitude, specific_longitude,
  mentioned_location_type, mentioned_location_name, mentioned_country_code, mentioned_adm1_code, mentioned_latitude, mentioned_longitude
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url, published_date) DO UPDATE SET
  title=excluded.title,
  source_name=excluded.source_name,
  avg_tone=excluded.avg_tone,
  themes=excluded.themes,
  specific_location_type=excluded.specific_location_type,
  specific_location_name=excluded.specific_location_name,
  specific_country_code=excluded.specific_country_code,
  specific_adm1_code=excluded.specific_adm1_code,
  specific_latitude=excluded.specific_latitude,
  specific_longitude=excluded.specific_longitude,
  mentioned_location_type=excluded.mentioned_location_type,
  mentioned_location_name=excluded.mentioned_location_name,
  mentioned_country_code=excluded.mentioned_country_code,
  mentioned_adm1_code=excluded.mentioned_adm1_code,
  mentioned_latitude=excluded.mentioned_latitude,
  mentioned_longitude=excluded.mentioned_longitude,
  updated_at=CURRENT_TIMESTAMP
`

// UpsertArticles writes articles keyed on (url, published_date). Articles
// without a URL cannot be keyed and are skipped.
func (d *DB) UpsertArticles(ctx context.Context, articles []internal.Article) (int, error) {
	rows := make([]internal.ArticleRow, 0, len(articles))
	for _, a := range articles {
		if a.URL == nil {
			continue
		}
		rows = append(rows, a.Row())
	}

	total := 0
	for start := 0; start < len(rows); start += d.batchSize {
		end := min(start+d.batchSize, len(rows))
		if err := d.upsertBatch(ctx, rows[start:end]); err != nil {
			return total, fmt.Errorf("upsert articles %d-%d: %w", start, end, err)
		}
		total += end - start
	}
	return total, nil
}

func (d *DB) upsertBatch(ctx context.Context, rows []internal.ArticleRow) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, d.rebind(upsertArticleSQL))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		themesJSON, _ := json.Marshal(r.Themes)
		if _, err := stmt.ExecContext(ctx,
			r.URL, r.Title, r.SourceName, r.AvgTone, r.PublishedDate, string(themesJSON),
			r.SpecificLocationType, r.SpecificLocationName, r.SpecificCountryCode, r.SpecificADM1Code, r.SpecificLatitude, r.SpecificLongitude,
			r.MentionedLocationType, r.MentionedLocationName, r.MentionedCountryCode, r.MentionedADM1Code, r.MentionedLatitude, r.MentionedLongitude,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteOlderThan removes articles published before cutoff (YYYY-MM-DD).
func (d *DB) DeleteOlderThan(ctx context.Context, cutoff string) (int, error) {
	res, err := d.conn.ExecContext(ctx, d.rebind(`DELETE FROM articles WHERE published_date < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SentimentByCountry averages tone per country over [start, end]. The
// mentioned location's country is used, falling back to the specific one.
func (d *DB) SentimentByCountry(ctx context.Context, start, end string) ([]internal.CountrySentiment, error) {
	rows, err := d.conn.QueryContext(ctx, d.rebind(`
SELECT country_code, AVG(avg_tone), COUNT(*)
FROM (
  SELECT COALESCE(NULLIF(mentioned_country_code, ''), NULLIF(specific_country_code, '')) AS country_code, avg_tone
  FROM articles
  WHERE published_date >= ? AND published_date <= ?
) scoped
WHERE country_code IS NOT NULL
GROUP BY country_code
ORDER BY country_code
`), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.CountrySentiment{}
	for rows.Next() {
		var row internal.CountrySentiment
		if err := rows.Scan(&row.CountryCode, &row.AvgTone, &row.ArticleCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}

func (d *DB) InsertRun(ctx context.Context, summary internal.RunSummary) error {
	counts := map[string]int{
		"extracted":   summary.Extracted,
		"transformed": summary.Transformed,
		"loaded":      summary.Loaded,
		"deleted":     summary.Deleted,
	}
	countsJSON, _ := json.Marshal(counts)
	timingsJSON, _ := json.Marshal(summary.TimingsMs)
	if _, err := d.conn.ExecContext(ctx, d.rebind(`INSERT INTO runs (run_id, start_date, end_date, counts_json, timings_json) VALUES (?, ?, ?, ?, ?)`),
		summary.RunID, summary.StartDate, summary.EndDate, string(countsJSON), string(timingsJSON)); err != nil {
		return err
	}
	return d.SetMetadata(ctx, LastRunKey, summary.RunID)
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, d.rebind(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`), key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, d.rebind(`SELECT value FROM metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
