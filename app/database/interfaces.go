package database

import (
	"context"

	"github.com/unknownshopper/maiz-news/app/feed"
)

type NewsRepository interface {
	Upsert(ctx context.Context, items []feed.NewsItem) error
	Query(ctx context.Context, q Query) ([]NewsRecord, error)
	Count(ctx context.Context) (int, error)
	CountByRegion(ctx context.Context) (map[string]int, error)
}
