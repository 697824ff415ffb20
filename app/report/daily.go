package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unknownshopper/maiz-news/app/database"
)

const dailyWindow = 24 * time.Hour

type Querier interface {
	Query(ctx context.Context, q database.Query) ([]database.NewsRecord, error)
}

// Daily is the exported digest of the last 24 hours.
type Daily struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

func BuildDaily(ctx context.Context, repo Querier, now time.Time) (*Daily, error) {
	since := now.Add(-dailyWindow)
	records, err := repo.Query(ctx, database.Query{Since: &since, Until: &now, Limit: database.MaxLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to query last 24h: %w", err)
	}

	items := NewItems(records)
	return &Daily{
		Date:  now.UTC().Format(time.DateOnly),
		Count: len(items),
		Items: items,
	}, nil
}

// WriteDaily stores the digest as dir/news-YYYY-MM-DD.json and returns its path.
func WriteDaily(dir string, daily *Daily) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(daily, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("news-%s.json", daily.Date))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
