package pipeline

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"heatmap/internal"
)

func TestTransformBasic(t *testing.T) {
	rows := []internal.RawRow{{
		URL:          sp("https://example.com/article1"),
		Extras:       sp("<PAGE_TITLE>AI Boom</PAGE_TITLE>"),
		RawLocations: sp("1#United States#US##39.8282#-98.5795#US"),
		RawTone:      sp("-2.5,1.0,2.0,3.0,4.0,5.0,50"),
		RawDate:      sp("20250615120000"),
		RawThemes:    sp("TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,100"),
	}}

	out, stats := Transform(rows)
	if len(out) != 1 {
		t.Fatalf("len=%d stats=%+v", len(out), stats)
	}
	a := out[0]
	if math.Abs(a.AvgTone-(-2.5)) > 1e-9 {
		t.Fatalf("avg tone=%v", a.AvgTone)
	}
	if a.Title == nil || *a.Title != "AI Boom" {
		t.Fatalf("title=%v", a.Title)
	}
	if a.SourceName == nil || *a.SourceName != "example.com" {
		t.Fatalf("source=%v", a.SourceName)
	}
	if a.PublishedDate != "2025-06-15" {
		t.Fatalf("date=%s", a.PublishedDate)
	}
	if !reflect.DeepEqual(a.Themes, []string{"TAX_FNCACT_ARTIFICIAL_INTELLIGENCE"}) {
		t.Fatalf("themes=%v", a.Themes)
	}

	row := a.Row()
	if row.MentionedCountryCode == nil || *row.MentionedCountryCode != "US" {
		t.Fatalf("mentioned country=%v", row.MentionedCountryCode)
	}
	if row.SpecificLocationType == nil || *row.SpecificLocationType != 1 {
		t.Fatalf("specific type=%v", row.SpecificLocationType)
	}
	if row.SpecificADM1Code != nil {
		t.Fatalf("specific adm1 should be absent")
	}
	if stats.Output != 1 || stats.Input != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestTransformDropsMissingCountry(t *testing.T) {
	rows := []internal.RawRow{{
		URL:          sp("https://example.com/no-location"),
		RawLocations: sp(""),
		RawTone:      sp("1.0,1.0,1.0,1.0,1.0,1.0,50"),
		RawDate:      sp("20250615120000"),
		RawThemes:    sp("TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,100"),
	}}

	out, stats := Transform(rows)
	if len(out) != 0 {
		t.Fatalf("len=%d", len(out))
	}
	if stats.RejectedCountry != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestTransformKeepsRowWithOnlySpecificCountry(t *testing.T) {
	rows := []internal.RawRow{{
		URL:          sp("https://example.com/mixed"),
		RawLocations: sp("1#Nowhere###1#1#x;1#Nowhere###1#1#x;3#Berlin, Germany#GM#GM16#52.5#13.4#b"),
		RawTone:      sp("0.5"),
		RawDate:      sp("20250615120000"),
	}}

	out, _ := Transform(rows)
	if len(out) != 1 {
		t.Fatalf("len=%d", len(out))
	}
	row := out[0].Row()
	if row.MentionedCountryCode != nil {
		t.Fatalf("mentioned country should be absent: %v", *row.MentionedCountryCode)
	}
	if row.SpecificCountryCode == nil || *row.SpecificCountryCode != "GM" {
		t.Fatalf("specific country=%v", row.SpecificCountryCode)
	}
}

func TestTransformRejectsMissingToneOrDate(t *testing.T) {
	loc := sp("1#Germany#GM##51.1657#10.4515#GM")
	rows := []internal.RawRow{
		{URL: sp("https://a.example/1"), RawLocations: loc, RawTone: nil, RawDate: sp("20250615120000")},
		{URL: sp("https://a.example/2"), RawLocations: loc, RawTone: sp("x,1"), RawDate: sp("20250615120000")},
		{URL: sp("https://a.example/3"), RawLocations: loc, RawTone: sp("1.0"), RawDate: sp("1234")},
		{URL: sp("https://a.example/4"), RawLocations: loc, RawTone: sp("1.0"), RawDate: nil},
	}

	out, stats := Transform(rows)
	if len(out) != 0 {
		t.Fatalf("len=%d", len(out))
	}
	if stats.RejectedTone != 2 || stats.RejectedDate != 2 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestTransformDeduplicates(t *testing.T) {
	row := internal.RawRow{
		URL:          sp("https://example.com/dup"),
		RawLocations: sp("1#Germany#GM##51.1657#10.4515#GM"),
		RawTone:      sp("3.0,1.0,1.0,1.0,1.0,1.0,50"),
		RawDate:      sp("20250615120000"),
		RawThemes:    sp("TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,100"),
	}
	second := row
	second.RawTone = sp("-7.0")
	otherDay := row
	otherDay.RawDate = sp("20250616000000")

	out, stats := Transform([]internal.RawRow{row, second, otherDay})
	if len(out) != 2 {
		t.Fatalf("len=%d", len(out))
	}
	if out[0].AvgTone != 3.0 {
		t.Fatalf("expected first occurrence kept, tone=%v", out[0].AvgTone)
	}
	if out[1].PublishedDate != "2025-06-16" {
		t.Fatalf("second date=%s", out[1].PublishedDate)
	}
	if stats.Duplicates != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestTransformDropsIdenticalRows(t *testing.T) {
	row := func() internal.RawRow {
		return internal.RawRow{
			URL:          sp("https://example.com/same"),
			Extras:       sp("<PAGE_TITLE>Same</PAGE_TITLE>"),
			RawLocations: sp("1#France#FR##46#2#FR"),
			RawTone:      sp("1.5,2,0.5"),
			RawDate:      sp("20250615120000"),
			RawThemes:    sp("TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,10"),
		}
	}

	out, stats := Transform([]internal.RawRow{row(), row()})
	if len(out) != 1 {
		t.Fatalf("len=%d", len(out))
	}
	if stats.Duplicates != 1 || stats.Output != 1 {
		t.Fatalf("stats=%+v", stats)
	}

	par, parStats := TransformParallel([]internal.RawRow{row(), row()}, 2)
	if len(par) != 1 || parStats.Duplicates != 1 {
		t.Fatalf("parallel len=%d stats=%+v", len(par), parStats)
	}
}

func TestTransformEmpty(t *testing.T) {
	out, stats := Transform(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil batch, got %v", out)
	}
	if stats.Output != 0 {
		t.Fatalf("stats=%+v", stats)
	}

	out, _ = Transform([]internal.RawRow{{}})
	if len(out) != 0 {
		t.Fatalf("len=%d", len(out))
	}
}

func TestDedupeArticlesAbsentURL(t *testing.T) {
	in := []internal.Article{
		{PublishedDate: "2025-06-15", AvgTone: 1},
		{PublishedDate: "2025-06-15", AvgTone: 2},
		{URL: sp(""), PublishedDate: "2025-06-15", AvgTone: 3},
	}
	out := DedupeArticles(in)
	if len(out) != 2 || out[0].AvgTone != 1 || out[1].AvgTone != 3 {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestTransformParallelMatchesSequential(t *testing.T) {
	rows := make([]internal.RawRow, 0, 200)
	for i := 0; i < 200; i++ {
		row := internal.RawRow{
			URL:          sp(fmt.Sprintf("https://example.com/%d", i%150)),
			RawLocations: sp("1#Germany#GM##51#10#GM;3#Berlin, Germany#GM#GM16#52.5#13.4#b"),
			RawTone:      sp(fmt.Sprintf("%d.5,1", i%7)),
			RawDate:      sp("20250615120000"),
			RawThemes:    sp("A,1;B,2"),
		}
		if i%11 == 0 {
			row.RawTone = nil
		}
		if i%13 == 0 {
			row.RawLocations = sp("garbage")
		}
		rows = append(rows, row)
	}

	seq, seqStats := Transform(rows)
	for _, workers := range []int{0, 1, 3, 8} {
		par, parStats := TransformParallel(rows, workers)
		if !reflect.DeepEqual(seq, par) {
			t.Fatalf("workers=%d: parallel output differs", workers)
		}
		if seqStats != parStats {
			t.Fatalf("workers=%d: stats %+v vs %+v", workers, seqStats, parStats)
		}
	}
}
