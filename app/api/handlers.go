package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/report"
	"github.com/unknownshopper/maiz-news/app/tasks"
)

func NewHandler(newsRepo database.NewsRepository, ingester tasks.CycleRunner, sources SourceProvider, generator GeneratorInterface) *Handler {
	return &Handler{
		newsRepo:  newsRepo,
		ingester:  ingester,
		sources:   sources,
		generator: generator,
	}
}

// GetNews serves stored news as JSON (default), CSV or RSS.
func (h *Handler) GetNews(c *gin.Context) {
	query := parseNewsQuery(c)

	records, err := h.newsRepo.Query(c.Request.Context(), query)
	if err != nil {
		slog.Error("Database error", "operation", "query_news", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error consultando noticias"})
		return
	}

	c.Header("X-Result-Count", strconv.Itoa(len(records)))

	switch strings.ToLower(c.Query("format")) {
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, report.NewItems(records)); err != nil {
			slog.Error("CSV generation error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error consultando noticias"})
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())

	case "rss":
		rss, err := h.generator.Run(records)
		if err != nil {
			slog.Error("RSS generation error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error consultando noticias"})
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))

	default:
		c.JSON(http.StatusOK, report.NewItems(records))
	}
}

// AdminIngest runs one ingestion cycle synchronously.
func (h *Handler) AdminIngest(c *gin.Context) {
	// A client disconnect must not abort a cycle halfway through
	ctx := context.WithoutCancel(c.Request.Context())

	count, err := h.ingester.RunCycle(ctx, h.sources.GetSources())
	if err != nil {
		slog.Error("Manual ingestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error ejecutando ingesta"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "count": count})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"ok":        true,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if newsCount, err := h.newsRepo.Count(c.Request.Context()); err == nil {
		health["news"] = newsCount
	} else {
		slog.Warn("Failed to count news for health check", "error", err)
	}

	health["loaded_sources"] = h.sources.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.newsRepo.Count(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_news", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	regions, err := h.newsRepo.CountByRegion(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_by_region", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"regions": regions,
		"sources": h.sources.GetSourceCount(),
	})
}

// parseNewsQuery is permissive: a bad limit falls back to the default and
// unparseable dates are ignored.
func parseNewsQuery(c *gin.Context) database.Query {
	query := database.Query{
		Text:  c.Query("q"),
		Since: report.ParseTime(c.Query("from")),
		Until: report.ParseTime(c.Query("to")),
		Limit: database.DefaultLimit,
	}

	if limit, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil {
		query.Limit = limit
	}
	query.Limit = database.ClampLimit(query.Limit)

	for _, region := range strings.Split(c.Query("region"), ",") {
		if region = strings.TrimSpace(region); region != "" {
			query.Regions = append(query.Regions, region)
		}
	}

	return query
}
