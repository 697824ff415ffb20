package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"
	"time"

	"modernc.org/sqlite"

	"github.com/unknownshopper/maiz-news/app/feed"
)

// fold is available in SQL so text search ignores case and diacritics
// the same way the relevance filter does.
func init() {
	err := sqlite.RegisterDeterministicScalarFunction("fold", 1, func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return feed.Fold(v), nil
		case []byte:
			return feed.Fold(string(v)), nil
		default:
			return "", nil
		}
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register fold function: %v", err))
	}
}

var (
	// encodeURIComponent leaves these unescaped, url.QueryEscape does not
	docIDReplacer = strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	)

	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// DocIDFromLink derives the stable record identity from a canonical link.
func DocIDFromLink(link string) string {
	return docIDReplacer.Replace(url.QueryEscape(link))
}

// ClampLimit bounds a requested result size to [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	return min(max(limit, MinLimit), MaxLimit)
}

// SQLiteNewsRepository handles database operations for news items
type SQLiteNewsRepository struct {
	db  *DB
	now func() time.Time
}

func NewNewsRepository(db *DB) *SQLiteNewsRepository {
	return &SQLiteNewsRepository{db: db, now: time.Now}
}

// Upsert stores a batch of items in a single transaction. An existing
// record with the same link is overwritten except for its creation time.
func (r *SQLiteNewsRepository) Upsert(ctx context.Context, items []feed.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO news (
			doc_id, title, link, description, published_at,
			source, region, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at,
			source = excluded.source,
			region = excluded.region,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := r.now().UnixMilli()
	for _, item := range items {
		if item.Link == "" {
			continue
		}

		var publishedAt sql.NullInt64
		if item.PublishedAt != nil {
			publishedAt = sql.NullInt64{Int64: item.PublishedAt.UnixMilli(), Valid: true}
		}

		region := item.Region
		if region == "" {
			region = feed.DefaultRegion
		}

		_, err := stmt.ExecContext(ctx,
			DocIDFromLink(item.Link), item.Title, item.Link, item.Description, publishedAt,
			item.Source, region, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert item %s: %w", item.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Query returns matching records, newest first with undated records last.
func (r *SQLiteNewsRepository) Query(ctx context.Context, q Query) ([]NewsRecord, error) {
	var (
		where []string
		args  []any
	)

	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + likeEscaper.Replace(feed.Fold(text)) + "%"
		where = append(where, `(fold(title) LIKE ? ESCAPE '\' OR fold(description) LIKE ? ESCAPE '\' OR fold(source) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	var regions []string
	for _, region := range q.Regions {
		if region = strings.ToLower(strings.TrimSpace(region)); region != "" {
			regions = append(regions, region)
		}
	}
	if len(regions) > 0 {
		where = append(where, "region IN (?"+strings.Repeat(", ?", len(regions)-1)+")")
		for _, region := range regions {
			args = append(args, region)
		}
	}

	if q.Since != nil {
		where = append(where, "published_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if q.Until != nil {
		where = append(where, "published_at <= ?")
		args = append(args, q.Until.UnixMilli())
	}

	query := `
		SELECT id, doc_id, title, link, description, published_at,
		       source, region, created_at, updated_at
		FROM news`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, "\n\t\t  AND ")
	}
	query += `
		ORDER BY published_at DESC NULLS LAST, id DESC
		LIMIT ?`
	args = append(args, ClampLimit(q.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	records := []NewsRecord{}
	for rows.Next() {
		var (
			record      NewsRecord
			publishedAt sql.NullInt64
			createdAt   int64
			updatedAt   int64
		)
		err := rows.Scan(
			&record.ID, &record.DocID, &record.Title, &record.Link, &record.Description,
			&publishedAt, &record.Source, &record.Region, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news row: %w", err)
		}

		if publishedAt.Valid {
			t := time.UnixMilli(publishedAt.Int64).UTC()
			record.PublishedAt = &t
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		record.UpdatedAt = time.UnixMilli(updatedAt).UTC()

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news rows: %w", err)
	}

	return records, nil
}

// Count returns the total number of stored records
func (r *SQLiteNewsRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get news count: %w", err)
	}
	return count, nil
}

// CountByRegion returns the number of stored records per region
func (r *SQLiteNewsRepository) CountByRegion(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT region, COUNT(*) FROM news GROUP BY region")
	if err != nil {
		return nil, fmt.Errorf("failed to get region counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			region string
			count  int
		)
		if err := rows.Scan(&region, &count); err != nil {
			return nil, fmt.Errorf("failed to scan region count: %w", err)
		}
		counts[region] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating region counts: %w", err)
	}

	return counts, nil
}
