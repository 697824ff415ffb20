package report

import (
	"time"

	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/feed"
)

// ISO8601 matches the millisecond UTC timestamps served by the API.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// Item is the public shape of a news record.
type Item struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	Description string  `json:"description"`
	Date        *string `json:"date"`
	Source      string  `json:"source"`
	Region      string  `json:"region"`
}

func NewItem(record database.NewsRecord) Item {
	item := Item{
		Title:       record.Title,
		Link:        record.Link,
		Description: record.Description,
		Source:      record.Source,
		Region:      record.Region,
	}
	if item.Region == "" {
		item.Region = feed.DefaultRegion
	}
	if record.PublishedAt != nil {
		date := FormatTime(*record.PublishedAt)
		item.Date = &date
	}
	return item
}

func NewItems(records []database.NewsRecord) []Item {
	items := make([]Item, 0, len(records))
	for _, record := range records {
		items = append(items, NewItem(record))
	}
	return items
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}
