package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"heatmap/internal"
)

func sp(v string) *string { return &v }

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "heatmap.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func article(url, date, country string, tone float64) internal.Article {
	return internal.Article{
		URL:           sp(url),
		Title:         sp("title " + url),
		SourceName:    sp("example.com"),
		AvgTone:       tone,
		PublishedDate: date,
		Themes:        []string{"TAX_FNCACT_ARTIFICIAL_INTELLIGENCE"},
		Mentioned:     &internal.Location{Type: 1, Name: country, CountryCode: sp(country)},
	}
}

func TestUpsertArticlesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	db.SetBatchSize(2)

	batch := []internal.Article{
		article("https://a.example/1", "2025-06-15", "US", 1),
		article("https://a.example/2", "2025-06-15", "US", 2),
		article("https://a.example/3", "2025-06-16", "GM", -1),
		{PublishedDate: "2025-06-16", AvgTone: 5},
	}
	n, err := db.UpsertArticles(ctx, batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("upserted=%d", n)
	}

	batch[0].AvgTone = 3
	if _, err := db.UpsertArticles(ctx, batch[:1]); err != nil {
		t.Fatal(err)
	}

	count, err := db.CountArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("count=%d", count)
	}

	rows, err := db.SentimentByCountry(ctx, "2025-06-15", "2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].CountryCode != "US" || rows[0].ArticleCount != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	if math.Abs(rows[0].AvgTone-2.5) > 1e-9 {
		t.Fatalf("avg=%v", rows[0].AvgTone)
	}
}

func TestSentimentByCountryFallsBackToSpecific(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	a := article("https://a.example/1", "2025-06-15", "US", 1)
	a.Mentioned = &internal.Location{Type: 1, Name: "Nowhere"}
	a.Specific = &internal.Location{Type: 3, Name: "Berlin", CountryCode: sp("GM")}
	if _, err := db.UpsertArticles(ctx, []internal.Article{a, article("https://a.example/2", "2025-06-15", "FR", -2)}); err != nil {
		t.Fatal(err)
	}

	rows, err := db.SentimentByCountry(ctx, "2025-01-01", "2025-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].CountryCode != "FR" || rows[1].CountryCode != "GM" {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.UpsertArticles(ctx, []internal.Article{
		article("https://a.example/old", "2024-01-01", "US", 1),
		article("https://a.example/new", "2025-06-15", "US", 1),
	}); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteOlderThan(ctx, "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted=%d", deleted)
	}
	count, _ := db.CountArticles(ctx)
	if count != 1 {
		t.Fatalf("count=%d", count)
	}
}

func TestRunsAndMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	missing, err := db.GetMetadata(ctx, LastRunKey)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %q", *missing)
	}

	if err := db.InsertRun(ctx, internal.RunSummary{RunID: "r1", StartDate: "2025-06-13", EndDate: "2025-06-15", Loaded: 3}); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetMetadata(ctx, LastRunKey)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != "r1" {
		t.Fatalf("got %v", got)
	}

	if err := db.SetMetadata(ctx, "schema.note", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata(ctx, "schema.note", "b"); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetMetadata(ctx, "schema.note")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestRebind(t *testing.T) {
	db := &DB{driver: "postgres"}
	if got := db.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("got %s", got)
	}
	db.driver = "sqlite"
	if got := db.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("got %s", got)
	}
}

func TestOpenDriverRejectsUnknown(t *testing.T) {
	if _, err := OpenDriver("mysql", "x"); err == nil {
		t.Fatal("expected error")
	}
}
