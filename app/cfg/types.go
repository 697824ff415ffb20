package cfg

const (
	CommandServe  = "serve"
	CommandIngest = "ingest"
	CommandExport = "export"
)

type Cfg struct {
	// Storage
	DBPath string

	// Sources
	SourcesFile      string
	UserAgent        string
	FetchConcurrency int
	ExtractContent   bool

	// HTTP server
	Port       string
	BaseUrl    string
	AdminToken string

	// Scheduling
	WorkerCount       int
	SchedulerInterval int

	// Export
	ExportDir string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string

	Command string
}
