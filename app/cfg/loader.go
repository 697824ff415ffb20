package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/news.db" description:"SQLite database file"`

	// Sources
	SourcesFile      string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing feed sources (built-in list when missing)"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"MaizNews/1.0 (+https://github.com/unknownshopper/maiz-news)" description:"User agent string for feed requests"`
	FetchConcurrency int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"0" description:"Maximum concurrent feed fetches (0 = all at once)"`
	ExtractContent   bool   `long:"extract-content" env:"EXTRACT_CONTENT" description:"Fetch linked articles and use their text for relevance filtering"`

	// HTTP server
	Port       string `long:"port" env:"PORT" default:"5050" description:"HTTP server port"`
	BaseUrl    string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://maiz.example.com)"`
	AdminToken string `long:"admin-token" env:"ADMIN_TOKEN" description:"Token required by POST /api/admin/ingest (required for serve)"`

	// Scheduling
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for ingestion"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Seconds between ingestion cycles (0 disables)"`

	// Export
	ExportDir string `long:"export-dir" env:"EXPORT_DIR" default:"./exports" description:"Directory for daily JSON exports"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Mexico_City)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Serve  struct{} `command:"serve" description:"Run the HTTP API and the ingestion scheduler (default)"`
	Ingest struct{} `command:"ingest" description:"Run a single ingestion cycle and exit"`
	Export struct{} `command:"export" description:"Write the last 24 hours of news to a JSON file and exit"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help
// was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandServe
	if parser.Active != nil {
		command = parser.Active.Name
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesFile:       raw.SourcesFile,
		UserAgent:         raw.UserAgent,
		FetchConcurrency:  raw.FetchConcurrency,
		ExtractContent:    raw.ExtractContent,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		AdminToken:        raw.AdminToken,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		ExportDir:         raw.ExportDir,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
		Command:           command,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.Command == CommandServe && cfg.AdminToken == "" {
		return errors.New("ADMIN_TOKEN is required to serve the API")
	}
	if cfg.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if cfg.SchedulerInterval < 0 {
		return fmt.Errorf("scheduler interval must not be negative, got %d", cfg.SchedulerInterval)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
