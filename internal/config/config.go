package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	RawDir    string
	OutputDir string
	LogLevel  string

	GCPProject          string
	GCPCredentialsFile  string
	BigQueryLocation    string
	BigQueryTimeoutMs   int
	BigQueryPageSize    int
	GDELTTable          string
	GDELTThemeFilter    string
	ExtractLookbackDays int

	StoreDriver string
	DBPath      string
	DatabaseURL string

	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseRateLimitRPS   int
	SupabaseTimeoutMs      int

	RetentionDays    int
	LoadBatchSize    int
	TransformWorkers int

	HTTPHost string
	HTTPPort int

	ScheduleIntervalHours int
	ScheduleRunOnStart    bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RawDir:    getEnv("RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		GCPProject:          getEnv("GCP_PROJECT", ""),
		GCPCredentialsFile:  getEnv("GCP_CREDENTIALS_FILE", ""),
		BigQueryLocation:    getEnv("BIGQUERY_LOCATION", "US"),
		BigQueryTimeoutMs:   getEnvInt("BIGQUERY_TIMEOUT_MS", 60000),
		BigQueryPageSize:    getEnvInt("BIGQUERY_PAGE_SIZE", 10000),
		GDELTTable:          getEnv("GDELT_TABLE", "gdelt-bq.gdeltv2.gkg_partitioned"),
		GDELTThemeFilter:    getEnv("GDELT_THEME_FILTER", "TAX_FNCACT_ARTIFICIAL_INTELLIGENCE"),
		ExtractLookbackDays: getEnvInt("EXTRACT_LOOKBACK_DAYS", 3),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "heatmap.db")),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseRateLimitRPS:   getEnvInt("SUPABASE_RATE_LIMIT_RPS", 5),
		SupabaseTimeoutMs:      getEnvInt("SUPABASE_TIMEOUT_MS", 25000),

		RetentionDays:    getEnvInt("RETENTION_DAYS", 365),
		LoadBatchSize:    getEnvInt("LOAD_BATCH_SIZE", 500),
		TransformWorkers: getEnvInt("TRANSFORM_WORKERS", 4),

		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		ScheduleIntervalHours: getEnvInt("SCHEDULE_INTERVAL_HOURS", 24),
		ScheduleRunOnStart:    getEnvBool("SCHEDULE_RUN_ON_START", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// StoreDSN returns the database/sql driver name and data source for the
// configured store.
func (c Config) StoreDSN() (string, string, error) {
	switch c.StoreDriver {
	case "sqlite", "":
		return "sqlite", c.DBPath, nil
	case "postgres":
		if err := c.Require("DATABASE_URL", c.DatabaseURL); err != nil {
			return "", "", err
		}
		return "postgres", c.DatabaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported STORE_DRIVER for database/sql: %s", c.StoreDriver)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
