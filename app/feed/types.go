package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// NewsItem is the normalized shape every feed entry is reduced to before
// filtering and storage.
type NewsItem struct {
	Title       string
	Link        string // canonical link, see NormalizeLink
	Description string
	PublishedAt *time.Time
	Source      string
	Region      string
}

// Source configuration types

const DefaultRegion = "mx"

// Source describes one feed to poll and the region tag its items carry.
type Source struct {
	URL    string `yaml:"url"`
	Region string `yaml:"region"`
}

type SourcesFile struct {
	Sources []Source `yaml:"sources"`
}
