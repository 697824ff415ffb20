package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/feed"
)

const DefaultArticleConcurrency = 8

var _ CycleRunner = (*Ingester)(nil)

// Ingester runs the fetch, filter and store pipeline. Cycles are
// serialized so a scheduled run and an admin trigger never interleave.
type Ingester struct {
	fetcher            FeedFetcher
	articleFetcher     ArticleFetcher
	filterer           *feed.Filterer
	newsRepo           database.NewsRepository
	articleConcurrency int

	mu sync.Mutex
}

// NewIngester creates an ingester. A nil articleFetcher disables body
// enrichment and filters on title and description only.
func NewIngester(fetcher FeedFetcher, articleFetcher ArticleFetcher, filterer *feed.Filterer, newsRepo database.NewsRepository, articleConcurrency int) *Ingester {
	if articleConcurrency <= 0 {
		articleConcurrency = DefaultArticleConcurrency
	}
	return &Ingester{
		fetcher:            fetcher,
		articleFetcher:     articleFetcher,
		filterer:           filterer,
		newsRepo:           newsRepo,
		articleConcurrency: articleConcurrency,
	}
}

func (i *Ingester) RunCycle(ctx context.Context, sources []feed.Source) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	runID := uuid.NewString()
	startedAt := time.Now()
	logger := slog.With("run_id", runID)

	logger.Debug("Ingestion cycle started", "sources", len(sources))

	items := i.fetcher.FetchMany(ctx, sources)
	bodies := i.enrich(ctx, items)
	relevant := dedupByLink(i.filterer.Run(items, bodies))

	if err := i.newsRepo.Upsert(ctx, relevant); err != nil {
		logger.Error("Ingestion cycle failed", "error", err)
		return 0, fmt.Errorf("failed to store news: %w", err)
	}

	logger.Info("Ingestion cycle completed",
		"sources", len(sources),
		"fetched", len(items),
		"relevant", len(relevant),
		"enriched", i.articleFetcher != nil,
		"duration", time.Since(startedAt))

	return len(relevant), nil
}

// enrich fetches article bodies concurrently. A failed fetch leaves an
// empty body and never affects other items.
func (i *Ingester) enrich(ctx context.Context, items []feed.NewsItem) []string {
	if i.articleFetcher == nil || len(items) == 0 {
		return nil
	}

	bodies := make([]string, len(items))

	var g errgroup.Group
	g.SetLimit(i.articleConcurrency)

	for idx, item := range items {
		g.Go(func() error {
			bodies[idx] = i.articleFetcher.Fetch(ctx, item.Link)
			return nil
		})
	}
	_ = g.Wait()

	return bodies
}

// dedupByLink keeps one item per link. The last occurrence wins, matching
// what the store would keep, at the position of the first.
func dedupByLink(items []feed.NewsItem) []feed.NewsItem {
	positions := make(map[string]int, len(items))
	deduped := make([]feed.NewsItem, 0, len(items))

	for _, item := range items {
		if pos, ok := positions[item.Link]; ok {
			deduped[pos] = item
			continue
		}
		positions[item.Link] = len(deduped)
		deduped = append(deduped, item)
	}

	return deduped
}
