package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unknownshopper/maiz-news/app/api"
	"github.com/unknownshopper/maiz-news/app/cfg"
	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/feed"
	"github.com/unknownshopper/maiz-news/app/report"
	"github.com/unknownshopper/maiz-news/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting maiz-news", "version", appCfg.Version, "command", appCfg.Command)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	newsRepo := database.NewNewsRepository(db)

	sourceCache := feed.NewSourceCache(appCfg.SourcesFile)
	if err := sourceCache.Run(); err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}
	slog.Info("Sources loaded", "count", sourceCache.GetSourceCount())

	ingester := newIngester(appCfg, newsRepo)

	switch appCfg.Command {
	case cfg.CommandIngest:
		err = runIngest(ingester, sourceCache)
	case cfg.CommandExport:
		err = runExport(newsRepo, appCfg.ExportDir)
	default:
		err = runServe(appCfg, newsRepo, ingester, sourceCache)
	}

	if err != nil {
		slog.Error("Command failed", "command", appCfg.Command, "error", err)
		db.Close()
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("service", "maiz-news"))
}

func newIngester(appCfg *cfg.Cfg, newsRepo database.NewsRepository) *tasks.Ingester {
	httpClient := &http.Client{}

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, feed.DefaultFeedTimeout, appCfg.FetchConcurrency)
	filterer := feed.NewFilterer(feed.DefaultKeywords)

	var articleFetcher tasks.ArticleFetcher
	if appCfg.ExtractContent {
		articleFetcher = feed.NewContentExtractor(httpClient, feed.BrowserUserAgent, feed.DefaultArticleTimeout)
	}

	return tasks.NewIngester(fetcher, articleFetcher, filterer, newsRepo, tasks.DefaultArticleConcurrency)
}

func runIngest(ingester *tasks.Ingester, sources *feed.SourceCache) error {
	count, err := ingester.RunCycle(context.Background(), sources.GetSources())
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"ok": true, "count": count})
}

func runExport(newsRepo database.NewsRepository, dir string) error {
	daily, err := report.BuildDaily(context.Background(), newsRepo, time.Now())
	if err != nil {
		return err
	}

	path, err := report.WriteDaily(dir, daily)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"ok": true, "path": path, "count": daily.Count})
}

func runServe(appCfg *cfg.Cfg, newsRepo database.NewsRepository, ingester *tasks.Ingester, sourceCache *feed.SourceCache) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := sourceCache.Watch(ctx); err != nil {
		slog.Warn("Sources hot reload disabled", "error", err)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(ingester, sourceCache, time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := strings.TrimSuffix(appCfg.BaseUrl, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", appCfg.Port)
	}
	generator := report.NewGenerator(baseURL, baseURL+"/api/noticias?format=rss", appCfg.Version)

	handler := api.NewHandler(newsRepo, ingester, sourceCache, generator)
	server := api.NewServer(handler, appCfg.AdminToken, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // admin ingestion runs inside the request
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
