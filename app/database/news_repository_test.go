package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unknownshopper/maiz-news/app/feed"
)

func newTestRepository(t *testing.T) (*SQLiteNewsRepository, *DB) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "data", "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewNewsRepository(db), db
}

func at(day int) *time.Time {
	t := time.Date(2024, time.March, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestOpenRunsMigrations(t *testing.T) {
	_, db := newTestRepository(t)

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
	require.False(t, dirty)
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	items := []feed.NewsItem{
		{Title: "Precio del maíz", Link: "https://example.com/a", Source: "A", Region: "mx"},
		{Title: "Cosecha en Tabasco", Link: "https://example.com/b", Source: "B", Region: "tabasco"},
	}

	require.NoError(t, repo.Upsert(ctx, items))
	require.NoError(t, repo.Upsert(ctx, items))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestUpsertMergesAndPreservesCreatedAt(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	first := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	repo.now = func() time.Time { return first }
	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{
		{Title: "Original", Link: "https://example.com/a", Source: "A", Region: "mx"},
	}))

	repo.now = func() time.Time { return second }
	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{
		{Title: "Actualizado", Description: "Nuevo texto", Link: "https://example.com/a", PublishedAt: at(2), Source: "A2", Region: "tabasco"},
	}))

	records, err := repo.Query(ctx, Query{Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, "Actualizado", record.Title)
	require.Equal(t, "Nuevo texto", record.Description)
	require.Equal(t, "A2", record.Source)
	require.Equal(t, "tabasco", record.Region)
	require.NotNil(t, record.PublishedAt)
	require.True(t, record.PublishedAt.Equal(*at(2)))
	require.True(t, record.CreatedAt.Equal(first), "created_at changed to %v", record.CreatedAt)
	require.True(t, record.UpdatedAt.Equal(second), "updated_at not bumped: %v", record.UpdatedAt)
	require.Equal(t, DocIDFromLink("https://example.com/a"), record.DocID)
}

func TestUpsertEmptyBatch(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, nil))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUpsertDefaultsRegion(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{{Title: "Sin región", Link: "https://example.com/a"}}))

	records, err := repo.Query(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, feed.DefaultRegion, records[0].Region)
}

func TestUpsertRollsBackWholeBatch(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	_, err := db.Exec(`
		CREATE TRIGGER reject_boom BEFORE INSERT ON news
		WHEN NEW.title = 'boom'
		BEGIN
			SELECT RAISE(ABORT, 'rejected');
		END`)
	require.NoError(t, err)

	err = repo.Upsert(ctx, []feed.NewsItem{
		{Title: "ok", Link: "https://example.com/ok"},
		{Title: "boom", Link: "https://example.com/boom"},
	})
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUpsertFailsOnClosedDatabase(t *testing.T) {
	repo, db := newTestRepository(t)
	require.NoError(t, db.Close())

	err := repo.Upsert(context.Background(), []feed.NewsItem{{Title: "x", Link: "https://example.com/x"}})
	require.Error(t, err)
}

func TestQueryOrdersNewestFirstWithUndatedLast(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{
		{Title: "undated", Link: "https://example.com/undated"},
		{Title: "old", Link: "https://example.com/old", PublishedAt: at(1)},
		{Title: "new", Link: "https://example.com/new", PublishedAt: at(10)},
	}))

	records, err := repo.Query(ctx, Query{Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "new", records[0].Title)
	require.Equal(t, "old", records[1].Title)
	require.Equal(t, "undated", records[2].Title)
	require.Nil(t, records[2].PublishedAt)
}

func TestQueryLimitBounds(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	items := make([]feed.NewsItem, 0, 205)
	for i := range 205 {
		items = append(items, feed.NewsItem{Title: fmt.Sprintf("item %d", i), Link: fmt.Sprintf("https://example.com/%d", i)})
	}
	require.NoError(t, repo.Upsert(ctx, items))

	records, err := repo.Query(ctx, Query{Limit: 10000})
	require.NoError(t, err)
	require.Len(t, records, MaxLimit)

	records, err = repo.Query(ctx, Query{Limit: 0})
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = repo.Query(ctx, Query{Limit: -5})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestQueryFilters(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{
		{Title: "Precio del Maíz sube", Link: "https://example.com/1", PublishedAt: at(1), Source: "El Economista", Region: "mx"},
		{Title: "Cosecha récord", Description: "Productores de maiz en Tabasco", Link: "https://example.com/2", PublishedAt: at(5), Source: "Tabasco Hoy", Region: "tabasco"},
		{Title: "Futuros en Chicago", Link: "https://example.com/3", PublishedAt: at(9), Source: "Reuters", Region: "mx"},
		{Title: "Descuento 100% en insumos", Link: "https://example.com/4", PublishedAt: at(12), Source: "Agro", Region: "campeche"},
	}))

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "no filters", query: Query{Limit: 50}, want: []string{"https://example.com/4", "https://example.com/3", "https://example.com/2", "https://example.com/1"}},
		{name: "text folds case and accents", query: Query{Text: "MAIZ", Limit: 50}, want: []string{"https://example.com/2", "https://example.com/1"}},
		{name: "text matches source", query: Query{Text: "reuters", Limit: 50}, want: []string{"https://example.com/3"}},
		{name: "wildcards are literal", query: Query{Text: "100%", Limit: 50}, want: []string{"https://example.com/4"}},
		{name: "underscore is literal", query: Query{Text: "_", Limit: 50}, want: []string{}},
		{name: "region set", query: Query{Regions: []string{"TABASCO", "campeche"}, Limit: 50}, want: []string{"https://example.com/4", "https://example.com/2"}},
		{name: "inclusive date range", query: Query{Since: at(5), Until: at(9), Limit: 50}, want: []string{"https://example.com/3", "https://example.com/2"}},
		{name: "combined", query: Query{Text: "maiz", Regions: []string{"mx"}, Limit: 50}, want: []string{"https://example.com/1"}},
		{name: "blank text ignored", query: Query{Text: "   ", Limit: 2}, want: []string{"https://example.com/4", "https://example.com/3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := repo.Query(ctx, tt.query)
			require.NoError(t, err)

			links := make([]string, 0, len(records))
			for _, record := range records {
				links = append(links, record.Link)
			}
			require.Equal(t, tt.want, links)
		})
	}
}

func TestCountByRegion(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []feed.NewsItem{
		{Title: "a", Link: "https://example.com/a", Region: "mx"},
		{Title: "b", Link: "https://example.com/b", Region: "mx"},
		{Title: "c", Link: "https://example.com/c", Region: "tabasco"},
	}))

	counts, err := repo.CountByRegion(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"mx": 2, "tabasco": 1}, counts)
}

func TestDocIDFromLink(t *testing.T) {
	link := "https://example.com/a b?x=1&y=(2)"

	require.Equal(t, "https%3A%2F%2Fexample.com%2Fa%20b%3Fx%3D1%26y%3D(2)", DocIDFromLink(link))
	require.Equal(t, DocIDFromLink(link), DocIDFromLink(link))
	require.NotEqual(t, DocIDFromLink("https://example.com/a"), DocIDFromLink("https://example.com/b"))
	require.Equal(t, "-_.!~*'()", DocIDFromLink("-_.!~*'()"))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{50, 50},
		{200, 200},
		{10000, 200},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}
