package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heatmap/internal"
	"heatmap/internal/config"
)

const (
	articlesTable = "articles"
	sentimentRPC  = "get_sentiment_by_country"
	maxAttempts   = 5
)

// Client talks to the Supabase PostgREST endpoint that backs the dashboard.
type Client struct {
	baseURL    string
	apiKey     string
	batchSize  int
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewClient prefers the service role key (needed for writes) and falls back
// to the anon key for read-only use.
func NewClient(cfg config.Config) (*Client, error) {
	if err := cfg.Require("SUPABASE_URL", cfg.SupabaseURL); err != nil {
		return nil, err
	}
	key := cfg.SupabaseServiceRoleKey
	if strings.TrimSpace(key) == "" {
		key = cfg.SupabaseAnonKey
	}
	if err := cfg.Require("SUPABASE_SERVICE_ROLE_KEY", key); err != nil {
		return nil, err
	}

	batch := cfg.LoadBatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		apiKey:     key,
		batchSize:  batch,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SupabaseTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SupabaseRateLimitRPS),
	}, nil
}

// UpsertArticles sends articles in batches, merging on (url, published_date).
func (c *Client) UpsertArticles(ctx context.Context, articles []internal.Article) (int, error) {
	rows := make([]internal.ArticleRow, 0, len(articles))
	for _, a := range articles {
		if a.URL == nil {
			continue
		}
		rows = append(rows, a.Row())
	}

	query := url.Values{}
	query.Set("on_conflict", "url,published_date")

	total := 0
	for start := 0; start < len(rows); start += c.batchSize {
		end := min(start+c.batchSize, len(rows))
		if _, err := c.do(ctx, http.MethodPost, "/rest/v1/"+articlesTable, query, "resolution=merge-duplicates,return=minimal", rows[start:end]); err != nil {
			return total, fmt.Errorf("upsert articles %d-%d: %w", start, end, err)
		}
		total += end - start
	}
	return total, nil
}

func (c *Client) DeleteOlderThan(ctx context.Context, cutoff string) (int, error) {
	query := url.Values{}
	query.Set("published_date", "lt."+cutoff)
	query.Set("select", "url")

	body, err := c.do(ctx, http.MethodDelete, "/rest/v1/"+articlesTable, query, "return=representation", nil)
	if err != nil {
		return 0, err
	}
	var deleted []json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &deleted); err != nil {
			return 0, fmt.Errorf("decode delete response: %w", err)
		}
	}
	return len(deleted), nil
}

func (c *Client) SentimentByCountry(ctx context.Context, start, end string) ([]internal.CountrySentiment, error) {
	payload := map[string]string{"start_date": start, "end_date": end}
	body, err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+sentimentRPC, nil, "", payload)
	if err != nil {
		return nil, err
	}
	out := []internal.CountrySentiment{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", sentimentRPC, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, prefer string, payload any) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var blob []byte
	if payload != nil {
		blob, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if blob != nil {
			reqBody = bytes.NewReader(blob)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := retryPause(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if err := retryPause(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("supabase status %d", resp.StatusCode)
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("supabase api error: status=%d body=%s", resp.StatusCode, string(body))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("supabase request failed")
	}
	return nil, lastErr
}

// retryPause backs off before the next attempt; the last attempt does not wait.
func retryPause(ctx context.Context, attempt int) error {
	if attempt >= maxAttempts {
		return nil
	}
	return sleepBackoff(ctx, attempt)
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
