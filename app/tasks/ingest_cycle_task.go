package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type IngestCycleTask struct {
	Task
	runner  CycleRunner
	sources SourceProvider
}

func NewIngestCycleTask(runner CycleRunner, sources SourceProvider) *IngestCycleTask {
	return &IngestCycleTask{
		Task:    NewTask(TaskTypeIngestCycle),
		runner:  runner,
		sources: sources,
	}
}

func (t *IngestCycleTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sources := t.sources.GetSources()
	if len(sources) == 0 {
		slog.Debug("No sources configured, skipping ingestion", "id", t.ID)
		return nil
	}

	count, err := t.runner.RunCycle(ctx, sources)
	if err != nil {
		return fmt.Errorf("ingestion cycle failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestCycle",
		"id", t.ID,
		"duration", t.GetDuration(),
		"sources", len(sources),
		"count", count)

	return nil
}
