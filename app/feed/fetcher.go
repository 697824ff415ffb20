package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultFeedTimeout = 20 * time.Second

	maxFeedBytes = 10 << 20
)

// Fetcher retrieves and parses syndication feeds.
type Fetcher struct {
	httpClient  *http.Client
	parser      *Parser
	userAgent   string
	timeout     time.Duration
	concurrency int
}

// NewFetcher creates a fetcher. concurrency <= 0 fetches every source at once.
func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration, concurrency int) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if parser == nil {
		parser = NewParser()
	}
	if timeout <= 0 {
		timeout = DefaultFeedTimeout
	}
	return &Fetcher{
		httpClient:  httpClient,
		parser:      parser,
		userAgent:   userAgent,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, source Source) ([]NewsItem, error) {
	data, err := f.fetchFeed(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := f.parser.Run(data, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	slog.Debug("Feed fetched", "url", source.URL, "title", metadata.Title, "items", len(items))
	return items, nil
}

// FetchMany fetches all sources concurrently. A failing source is logged
// and contributes nothing; it never affects its siblings. Items are
// returned in source order.
func (f *Fetcher) FetchMany(ctx context.Context, sources []Source) []NewsItem {
	results := make([][]NewsItem, len(sources))

	// Goroutines always return nil so one failure cannot cancel the rest
	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}

	for i, source := range sources {
		g.Go(func() error {
			items, err := f.Fetch(ctx, source)
			if err != nil {
				slog.Warn("Source failed, skipping", "url", source.URL, "region", source.Region, "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, items := range results {
		total += len(items)
	}

	all := make([]NewsItem, 0, total)
	for _, items := range results {
		all = append(all, items...)
	}
	return all
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
