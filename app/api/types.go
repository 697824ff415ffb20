package api

import (
	"github.com/unknownshopper/maiz-news/app/database"
	"github.com/unknownshopper/maiz-news/app/feed"
	"github.com/unknownshopper/maiz-news/app/report"
	"github.com/unknownshopper/maiz-news/app/tasks"
)

type GeneratorInterface interface {
	Run(records []database.NewsRecord) (string, error)
}

var _ GeneratorInterface = (*report.Generator)(nil)

type SourceProvider interface {
	GetSources() []feed.Source
	GetSourceCount() int
}

var _ SourceProvider = (*feed.SourceCache)(nil)

type Handler struct {
	newsRepo  database.NewsRepository
	ingester  tasks.CycleRunner
	sources   SourceProvider
	generator GeneratorInterface
}
