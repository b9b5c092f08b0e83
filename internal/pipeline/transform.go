package pipeline

import (
	"sync"

	"heatmap/internal"
	"heatmap/internal/util"
)

type RejectReason string

const (
	Accepted        RejectReason = ""
	RejectNoTone    RejectReason = "no_tone"
	RejectNoDate    RejectReason = "no_date"
	RejectNoCountry RejectReason = "no_country"
)

type TransformStats struct {
	Input           int `json:"input"`
	RejectedTone    int `json:"rejected_tone"`
	RejectedDate    int `json:"rejected_date"`
	RejectedCountry int `json:"rejected_country"`
	Duplicates      int `json:"duplicates"`
	Output          int `json:"output"`
}

func (s *TransformStats) reject(reason RejectReason) {
	switch reason {
	case RejectNoTone:
		s.RejectedTone++
	case RejectNoDate:
		s.RejectedDate++
	case RejectNoCountry:
		s.RejectedCountry++
	}
}

// AssembleArticle builds the normalized record for one row, or reports why
// the row is dropped.
func AssembleArticle(row internal.RawRow) (internal.Article, RejectReason) {
	tone := ParseTone(row.RawTone)
	if tone == nil {
		return internal.Article{}, RejectNoTone
	}
	date := ParseDate(row.RawDate)
	if date == nil {
		return internal.Article{}, RejectNoDate
	}

	locations := ParseLocations(row.RawLocations)
	specific := SelectMostSpecific(locations)
	mentioned := SelectMostMentioned(locations)
	if !hasCountry(specific) && !hasCountry(mentioned) {
		return internal.Article{}, RejectNoCountry
	}

	return internal.Article{
		URL:           row.URL,
		Title:         ResolveTitle(row.Extras, row.URL),
		SourceName:    ResolveSourceName(row.URL),
		AvgTone:       *tone,
		PublishedDate: *date,
		Themes:        ParseThemes(row.RawThemes),
		Specific:      specific,
		Mentioned:     mentioned,
	}, Accepted
}

func hasCountry(loc *internal.Location) bool {
	return loc != nil && util.Deref(loc.CountryCode) != ""
}

// Transform normalizes a batch of raw rows and deduplicates the result.
func Transform(rows []internal.RawRow) ([]internal.Article, TransformStats) {
	stats := TransformStats{Input: len(rows)}
	assembled := assembleRange(rows, &stats)
	return finish(assembled, stats)
}

// TransformParallel assembles contiguous shards of the batch concurrently and
// merges them back in input order before deduplicating.
func TransformParallel(rows []internal.RawRow, workers int) ([]internal.Article, TransformStats) {
	if workers <= 1 || len(rows) < 2*workers {
		return Transform(rows)
	}

	shardSize := (len(rows) + workers - 1) / workers
	type shard struct {
		articles []internal.Article
		stats    TransformStats
	}
	shards := make([]shard, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * shardSize
		if lo >= len(rows) {
			break
		}
		hi := min(lo+shardSize, len(rows))
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			shards[w].articles = assembleRange(rows[lo:hi], &shards[w].stats)
		}(w, lo, hi)
	}
	wg.Wait()

	stats := TransformStats{Input: len(rows)}
	merged := make([]internal.Article, 0, len(rows))
	for _, s := range shards {
		merged = append(merged, s.articles...)
		stats.RejectedTone += s.stats.RejectedTone
		stats.RejectedDate += s.stats.RejectedDate
		stats.RejectedCountry += s.stats.RejectedCountry
	}
	return finish(merged, stats)
}

func assembleRange(rows []internal.RawRow, stats *TransformStats) []internal.Article {
	out := make([]internal.Article, 0, len(rows))
	for _, row := range rows {
		article, reason := AssembleArticle(row)
		if reason != Accepted {
			stats.reject(reason)
			continue
		}
		out = append(out, article)
	}
	return out
}

func finish(assembled []internal.Article, stats TransformStats) ([]internal.Article, TransformStats) {
	out := DedupeArticles(assembled)
	stats.Duplicates = len(assembled) - len(out)
	stats.Output = len(out)
	return out, stats
}

type articleKey struct {
	url    string
	hasURL bool
	date   string
}

// DedupeArticles keeps the first article for every (url, published date).
func DedupeArticles(articles []internal.Article) []internal.Article {
	seen := make(map[articleKey]struct{}, len(articles))
	out := make([]internal.Article, 0, len(articles))
	for _, a := range articles {
		k := articleKey{url: util.Deref(a.URL), hasURL: a.URL != nil, date: a.PublishedDate}
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
