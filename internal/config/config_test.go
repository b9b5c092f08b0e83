package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "")
	t.Setenv("LOAD_BATCH_SIZE", "not-a-number")
	t.Setenv("STORE_DRIVER", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RetentionDays != 365 {
		t.Fatalf("retention=%d", cfg.RetentionDays)
	}
	if cfg.LoadBatchSize != 500 {
		t.Fatalf("batch=%d", cfg.LoadBatchSize)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("driver=%s", cfg.StoreDriver)
	}
}

func TestStoreDSN(t *testing.T) {
	cfg := Config{StoreDriver: "postgres"}
	if _, _, err := cfg.StoreDSN(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	cfg.DatabaseURL = "postgres://localhost/heatmap?sslmode=disable"
	driver, dsn, err := cfg.StoreDSN()
	if err != nil {
		t.Fatal(err)
	}
	if driver != "postgres" || dsn != cfg.DatabaseURL {
		t.Fatalf("driver=%s dsn=%s", driver, dsn)
	}

	cfg = Config{StoreDriver: "supabase"}
	if _, _, err := cfg.StoreDSN(); err == nil {
		t.Fatal("expected error for supabase driver")
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("HEATMAP_TEST_FLAG", "off")
	if getEnvBool("HEATMAP_TEST_FLAG", true) {
		t.Fatal("expected false")
	}
	t.Setenv("HEATMAP_TEST_FLAG", "maybe")
	if !getEnvBool("HEATMAP_TEST_FLAG", true) {
		t.Fatal("expected fallback")
	}
}
