package database

import (
	"time"

	"github.com/unknownshopper/maiz-news/app/feed"
)

const (
	DefaultLimit = 50
	MinLimit     = 1
	MaxLimit     = 200
)

// NewsRecord is a stored news item.
type NewsRecord struct {
	feed.NewsItem

	ID        int64
	DocID     string // URL-encoded canonical link
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query selects stored news. Zero values disable a constraint; Limit is
// always clamped with ClampLimit.
type Query struct {
	Text    string
	Regions []string
	Since   *time.Time
	Until   *time.Time
	Limit   int
}
