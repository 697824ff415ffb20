package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 500 * time.Millisecond

// DefaultSources is used when no sources file exists.
var DefaultSources = []Source{
	{URL: "https://news.google.com/rss/search?q=(ma%C3%ADz+OR+maiz)+(precio+OR+cotizaci%C3%B3n+OR+cbot+OR+chicago+OR+usda+OR+productores+OR+cosecha+OR+mercado+OR+insumos+OR+tortilla)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "mx"},
	{URL: "https://news.google.com/rss/search?q=(ma%C3%ADz+OR+maiz)+(precio+OR+tabasco+OR+villahermosa+OR+cosecha+OR+productores+OR+agr%C3%ADcola+OR+agropecuaria+OR+agroveterinaria+OR+mercado+OR+insumos)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "tabasco"},
	{URL: "https://feeds.reuters.com/reuters/commoditiesNews", Region: "mx"},
	{URL: "https://www.usda.gov/media/press-releases/rss", Region: "mx"},
	{URL: "https://www.fao.org/rss-feed/en/", Region: "mx"},
	{URL: "https://news.google.com/rss/search?q=site:eleconomista.com.mx+(ma%C3%ADz+OR+maiz)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "mx"},
	{URL: "https://news.google.com/rss/search?q=site:jornada.com.mx+(ma%C3%ADz+OR+maiz)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "mx"},
	{URL: "https://news.google.com/rss/search?q=site:informador.mx+(ma%C3%ADz+OR+maiz)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "mx"},
	{URL: "https://news.google.com/rss/search?q=site:ejecentral.com.mx+(ma%C3%ADz+OR+maiz)&hl=es-419&gl=MX&ceid=MX:es-419", Region: "mx"},
	{URL: "https://heraldodemexico.com.mx/rss", Region: "mx"},
	{URL: "https://www.reforma.com/libre/estatico/rss/", Region: "mx"},
	{URL: "https://www.eleconomista.com.mx/rss.html", Region: "mx"},
	{URL: "https://www.proceso.com.mx/rss/", Region: "mx"},
	{URL: "https://expansion.mx/canales-rss", Region: "mx"},
}

// SourceCache holds the current list of sources, loaded from a YAML file.
type SourceCache struct {
	path    string
	sources []Source
	mu      sync.RWMutex
}

func NewSourceCache(path string) *SourceCache {
	return &SourceCache{path: path}
}

// Run loads the sources file, falling back to DefaultSources when it
// does not exist.
func (sc *SourceCache) Run() error {
	if sc.path == "" {
		sc.set(DefaultSources)
		return nil
	}

	if _, err := os.Stat(sc.path); os.IsNotExist(err) {
		slog.Info("Sources file not found, using built-in sources", "path", sc.path, "count", len(DefaultSources))
		sc.set(DefaultSources)
		return nil
	}

	sources, err := sc.parseSources(sc.path)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", sc.path, err)
	}

	sc.set(sources)
	slog.Debug("Sources loaded", "path", sc.path, "count", len(sources))
	return nil
}

func (sc *SourceCache) GetSources() []Source {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sourcesCopy := make([]Source, len(sc.sources))
	copy(sourcesCopy, sc.sources)
	return sourcesCopy
}

func (sc *SourceCache) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.sources)
}

// Watch reloads the sources file whenever it changes until ctx is done.
// A reload that fails validation keeps the previous list.
func (sc *SourceCache) Watch(ctx context.Context) error {
	if sc.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of writing it
	dir := filepath.Dir(sc.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var debounce <-chan time.Time
		target := filepath.Clean(sc.path)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce = time.After(reloadDebounce)
				}

			case <-debounce:
				debounce = nil
				if err := sc.Run(); err != nil {
					slog.Error("Failed to reload sources, keeping previous list", "path", sc.path, "error", err)
					continue
				}
				slog.Info("Sources reloaded", "path", sc.path, "count", sc.GetSourceCount())

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Sources watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (sc *SourceCache) set(sources []Source) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.sources = make([]Source, len(sources))
	copy(sc.sources, sources)
}

func (sc *SourceCache) parseSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Sources {
		file.Sources[i].URL = strings.TrimSpace(file.Sources[i].URL)
		file.Sources[i].Region = strings.ToLower(strings.TrimSpace(file.Sources[i].Region))
		if file.Sources[i].Region == "" {
			file.Sources[i].Region = DefaultRegion
		}
	}

	if err := validateSources(file.Sources); err != nil {
		return nil, fmt.Errorf("invalid sources: %w", err)
	}

	return file.Sources, nil
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return errors.New("at least one source is required")
	}

	for i, source := range sources {
		if source.URL == "" {
			return fmt.Errorf("source at index %d: URL is required", i)
		}
		u, err := url.Parse(source.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source at index %d: invalid URL %q", i, source.URL)
		}
	}

	return nil
}
