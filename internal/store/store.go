package store

import (
	"context"

	"github.com/nhle/jira-metrics/internal/model"
)

// RunFilter controls filtering and pagination for run history queries.
type RunFilter struct {
	Status *string
	Limit  int
	Offset int
}

// Store defines the persistence interface for the run history.
type Store interface {
	CreateRun(ctx context.Context, run model.Run) (string, error)
	FinishRun(ctx context.Context, run model.Run) error
	GetRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	GetRunByID(ctx context.Context, id string) (*model.Run, error)
	Close() error
}
