package tasks

import (
	"context"

	"github.com/unknownshopper/maiz-news/app/feed"
)

// TaskSchedulerInterface is the background worker pool used by the serve command.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type FeedFetcher interface {
	FetchMany(ctx context.Context, sources []feed.Source) []feed.NewsItem
}

// ArticleFetcher returns the text of a linked article, or "" when it
// cannot be retrieved.
type ArticleFetcher interface {
	Fetch(ctx context.Context, link string) string
}

type SourceProvider interface {
	GetSources() []feed.Source
}

// CycleRunner runs one ingestion cycle and reports how many relevant
// items were handed to the store.
type CycleRunner interface {
	RunCycle(ctx context.Context, sources []feed.Source) (int, error)
}
