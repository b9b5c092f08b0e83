package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"heatmap/internal"
)

var articleHeaders = []string{
	"url", "title", "source_name", "avg_tone", "published_date", "themes",
	"specific_location_type", "specific_location_name", "specific_country_code",
	"specific_adm1_code", "specific_latitude", "specific_longitude",
	"mentioned_location_type", "mentioned_location_name", "mentioned_country_code",
	"mentioned_adm1_code", "mentioned_latitude", "mentioned_longitude",
}

func ExportArticlesToXLSX(articles []internal.Article, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	writeHeader(f, sheet, articleHeaders)

	for i, a := range articles {
		row := a.Row()
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, derefString(row.URL))
		set(2, derefString(row.Title))
		set(3, derefString(row.SourceName))
		set(4, row.AvgTone)
		set(5, row.PublishedDate)
		set(6, strings.Join(row.Themes, ";"))
		set(7, derefInt(row.SpecificLocationType))
		set(8, derefString(row.SpecificLocationName))
		set(9, derefString(row.SpecificCountryCode))
		set(10, derefString(row.SpecificADM1Code))
		set(11, derefFloat(row.SpecificLatitude))
		set(12, derefFloat(row.SpecificLongitude))
		set(13, derefInt(row.MentionedLocationType))
		set(14, derefString(row.MentionedLocationName))
		set(15, derefString(row.MentionedCountryCode))
		set(16, derefString(row.MentionedADM1Code))
		set(17, derefFloat(row.MentionedLatitude))
		set(18, derefFloat(row.MentionedLongitude))
	}

	return save(f, outputPath)
}

func ExportSentimentToXLSX(rows []internal.CountrySentiment, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	writeHeader(f, sheet, []string{"country_code", "iso2", "country_name", "avg_tone", "article_count"})

	for i, row := range rows {
		_ = f.SetSheetRow(sheet, cellName(1, i+2), &[]any{row.CountryCode, row.ISO2, row.CountryName, row.AvgTone, row.ArticleCount})
	}
	return save(f, outputPath)
}

// WriteArticlesJSONL writes one flattened article row per line.
func WriteArticlesJSONL(articles []internal.Article, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, a := range articles {
		if err := enc.Encode(a.Row()); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cellName(i+1, 1), h)
	}
}

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func save(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
