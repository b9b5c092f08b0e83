package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"heatmap/internal"
)

var ErrBadRequest = errors.New("bad request")

const (
	dateLayout        = "2006-01-02"
	defaultWindowDays = 30
)

type sentimentResponse struct {
	Start     string                      `json:"start"`
	End       string                      `json:"end"`
	Countries []internal.CountrySentiment `json:"countries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r.URL.Query(), s.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := s.source.SentimentByCountry(r.Context(), start, end)
	if err != nil {
		s.log.Error("sentiment query failed", "error", err, "start", start, "end", end)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sentiment query failed"})
		return
	}

	writeJSON(w, http.StatusOK, sentimentResponse{
		Start:     start,
		End:       end,
		Countries: s.countries.Annotate(rows),
	})
}

type dashboardView struct {
	Start     string
	End       string
	Error     string
	Countries []internal.CountrySentiment
	Total     int
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := dashboardView{}
	status := http.StatusOK

	start, end, err := parseWindow(r.URL.Query(), s.now())
	if err != nil {
		view.Error = err.Error()
		status = http.StatusBadRequest
	} else {
		view.Start, view.End = start, end
		rows, err := s.source.SentimentByCountry(r.Context(), start, end)
		if err != nil {
			s.log.Error("sentiment query failed", "error", err)
			view.Error = "Could not load sentiment data."
			status = http.StatusInternalServerError
		} else {
			view.Countries = s.countries.Annotate(rows)
			for _, row := range rows {
				view.Total += row.ArticleCount
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboardTemplate.Execute(w, view); err != nil {
		s.log.Error("render dashboard", "error", err)
	}
}

// parseWindow reads start/end (YYYY-MM-DD). Missing values default to the
// last 30 days ending today.
func parseWindow(q url.Values, now time.Time) (string, string, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today
	start := today.AddDate(0, 0, -defaultWindowDays)

	if v := q.Get("end"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return "", "", fmt.Errorf("%w: end must be YYYY-MM-DD", ErrBadRequest)
		}
		end = t
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return "", "", fmt.Errorf("%w: start must be YYYY-MM-DD", ErrBadRequest)
		}
		start = t
	}
	if start.After(end) {
		return "", "", fmt.Errorf("%w: start is after end", ErrBadRequest)
	}
	return start.Format(dateLayout), end.Format(dateLayout), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"tone":      func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"toneClass": toneClass,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AI News Sentiment by Country</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
th, td { padding: 0.3rem 0.8rem; border-bottom: 1px solid #ddd; text-align: left; }
td.num { text-align: right; }
.negative { color: #b00020; }
.positive { color: #1b5e20; }
</style>
</head>
<body>
<h1>AI News Sentiment by Country</h1>
<form method="get" action="/">
<label>Start <input type="date" name="start" value="{{.Start}}"></label>
<label>End <input type="date" name="end" value="{{.End}}"></label>
<button type="submit">Update</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{else}}
<p class="summary">{{len .Countries}} countries, {{.Total}} articles from {{.Start}} to {{.End}}</p>
{{if .Countries}}
<table id="sentiment">
<thead><tr><th>Code</th><th>ISO</th><th>Country</th><th>Avg tone</th><th>Articles</th></tr></thead>
<tbody>
{{range .Countries}}<tr data-code="{{.CountryCode}}"><td>{{.CountryCode}}</td><td>{{.ISO2}}</td><td>{{.CountryName}}</td><td class="num {{toneClass .AvgTone}}">{{tone .AvgTone}}</td><td class="num">{{.ArticleCount}}</td></tr>
{{end}}</tbody>
</table>
{{else}}<p class="empty">No data for the selected date range.</p>{{end}}
{{end}}
</body>
</html>
`))

func toneClass(v float64) string {
	switch {
	case v < 0:
		return "negative"
	case v > 0:
		return "positive"
	default:
		return "neutral"
	}
}
