package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/feed"
)

func sampleRecords() []database.NewsRecord {
	published := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	return []database.NewsRecord{
		{NewsItem: feed.NewsItem{
			Title:       `Maíz, "precio" récord`,
			Link:        "https://example.com/a?x=1&y=2",
			Description: "Primera línea\nSegunda línea",
			PublishedAt: &published,
			Source:      "El Economista",
			Region:      "mx",
		}},
		{NewsItem: feed.NewsItem{
			Title:  "Sin fecha",
			Link:   "https://example.com/b",
			Source: "Tabasco Hoy",
		}},
	}
}

func TestNewItems(t *testing.T) {
	items := NewItems(sampleRecords())

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Date == nil || *items[0].Date != "2024-06-03T10:00:00.000Z" {
		t.Errorf("Expected ISO-8601 date, got %v", items[0].Date)
	}
	if items[1].Date != nil {
		t.Errorf("Expected nil date for undated record, got %s", *items[1].Date)
	}
	if items[1].Region != feed.DefaultRegion {
		t.Errorf("Expected default region, got %q", items[1].Region)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewItems(sampleRecords())); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(decoded))
	}
	for _, key := range []string{"title", "link", "description", "date", "source", "region"} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("Expected key %q in JSON output", key)
		}
	}
	if decoded[1]["date"] != nil {
		t.Errorf("Expected null date, got %v", decoded[1]["date"])
	}
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewItems(nil)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Expected empty array, got %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewItems(sampleRecords())); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	output := buf.String()
	if !strings.HasPrefix(output, "title,link,description,date,source,region\n") {
		t.Errorf("Unexpected header: %q", output)
	}
	if !strings.Contains(output, `"Maíz, ""precio"" récord"`) {
		t.Errorf("Expected quoted title with escaped quotes, got %q", output)
	}

	rows, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "Primera línea\nSegunda línea" {
		t.Errorf("Expected multi-line description to round trip, got %q", rows[1][2])
	}
	if rows[2][3] != "" {
		t.Errorf("Expected empty date column, got %q", rows[2][3])
	}
}

func TestGenerator_Run(t *testing.T) {
	generator := NewGenerator("https://maiz.example.com", "https://maiz.example.com/api/noticias?format=rss", "test")

	output, err := generator.Run(sampleRecords())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{
		`<rss version="2.0"`,
		"<title>Noticias del maíz</title>",
		`<atom:link href="https://maiz.example.com/api/noticias?format=rss" rel="self"`,
		"<generator>maiz-news/test</generator>",
		"<lastBuildDate>Mon, 03 Jun 2024 10:00:00 +0000</lastBuildDate>",
		`<guid isPermaLink="true">https://example.com/a?x=1&amp;y=2</guid>`,
		"<title>Maíz, &#34;precio&#34; récord</title>",
		"<pubDate>Mon, 03 Jun 2024 10:00:00 +0000</pubDate>",
		"<category>Tabasco Hoy</category>",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("Expected output to contain %q", s)
		}
	}

	if strings.Count(output, "<item>") != 2 {
		t.Errorf("Expected 2 items, got %d", strings.Count(output, "<item>"))
	}
	if strings.Count(output, "<pubDate>") != 1 {
		t.Errorf("Expected undated item to have no pubDate")
	}
}

type stubQuerier struct {
	query   database.Query
	records []database.NewsRecord
	err     error
}

func (s *stubQuerier) Query(ctx context.Context, q database.Query) ([]database.NewsRecord, error) {
	s.query = q
	return s.records, s.err
}

func TestBuildDaily(t *testing.T) {
	now := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)
	repo := &stubQuerier{records: sampleRecords()[:1]}

	daily, err := BuildDaily(context.Background(), repo, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if daily.Date != "2024-06-03" {
		t.Errorf("Expected date 2024-06-03, got %s", daily.Date)
	}
	if daily.Count != 1 || len(daily.Items) != 1 {
		t.Errorf("Expected 1 item, got count %d and %d items", daily.Count, len(daily.Items))
	}
	if repo.query.Since == nil || !repo.query.Since.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("Expected 24h window start, got %v", repo.query.Since)
	}
	if repo.query.Until == nil || !repo.query.Until.Equal(now) {
		t.Errorf("Expected window end at now, got %v", repo.query.Until)
	}
}

func TestBuildDaily_Error(t *testing.T) {
	repo := &stubQuerier{err: errors.New("db closed")}

	if _, err := BuildDaily(context.Background(), repo, time.Now()); err == nil {
		t.Error("Expected error to be returned")
	}
}

func TestWriteDaily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	daily := &Daily{Date: "2024-06-03", Count: 1, Items: NewItems(sampleRecords()[:1])}

	path, err := WriteDaily(dir, daily)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if filepath.Base(path) != "news-2024-06-03.json" {
		t.Errorf("Unexpected file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	var decoded Daily
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.Count != 1 || decoded.Items[0].Link != "https://example.com/a?x=1&y=2" {
		t.Errorf("Unexpected report contents: %+v", decoded)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{name: "empty", in: "", want: nil},
		{name: "garbage", in: "not a date", want: nil},
		{name: "epoch millis", in: "1717408800000", want: ptr(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))},
		{name: "iso date", in: "2024-06-03", want: ptr(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))},
		{name: "rfc3339", in: "2024-06-03T10:00:00Z", want: ptr(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTime(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Errorf("Expected nil, got %v", *got)
				}
				return
			}
			if got == nil || !got.Equal(*tt.want) {
				t.Errorf("Expected %v, got %v", *tt.want, got)
			}
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
