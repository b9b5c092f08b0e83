// Package report renders the country sentiment aggregate as a plain-text table.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"heatmap/internal"
)

var headers = []string{"Code", "ISO", "Country", "Avg tone", "Articles"}

// right-aligned numeric columns
var numeric = []bool{false, false, false, true, true}

// WriteSentimentTable writes rows as an aligned pipe table followed by a totals line.
func WriteSentimentTable(w io.Writer, rows []internal.CountrySentiment) error {
	table := [][]string{headers}
	total := 0
	for _, r := range rows {
		table = append(table, []string{
			r.CountryCode,
			r.ISO2,
			r.CountryName,
			fmt.Sprintf("%.3f", r.AvgTone),
			humanize.Comma(int64(r.ArticleCount)),
		})
		total += r.ArticleCount
	}

	for _, line := range formatTable(table) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s countries, %s articles\n", humanize.Comma(int64(len(rows))), humanize.Comma(int64(total)))
	return err
}

func formatTable(table [][]string) []string {
	widths := make([]int, len(headers))
	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	lines := make([]string, 0, len(table)+1)
	for i, row := range table {
		lines = append(lines, formatRow(row, widths))
		if i == 0 {
			sep := make([]string, len(widths))
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}
			lines = append(lines, formatRow(sep, widths))
		}
	}
	return lines
}

func formatRow(row []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for j, w := range widths {
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		sb.WriteString(" ")
		if numeric[j] {
			sb.WriteString(runewidth.FillLeft(cell, w))
		} else {
			sb.WriteString(runewidth.FillRight(cell, w))
		}
		sb.WriteString(" |")
	}
	return sb.String()
}
