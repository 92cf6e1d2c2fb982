package storage

import (
	"context"

	"naptime/internal/model"
)

// Store persists runs and their per-generation summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	// ListRuns returns runs newest first; limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	SaveGeneration(ctx context.Context, record model.GenerationRecord) error
	// GetGenerations returns a run's generations ordered by index.
	GetGenerations(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
}
