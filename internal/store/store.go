package store

import (
	"context"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

// Store persists registry items and the runs owned by reference jobs.
type Store interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	// LoadOrCreateItem returns the stored item under item.Name, writing item
	// first when the name is free. The bool reports whether it was created.
	LoadOrCreateItem(ctx context.Context, item domain.Item) (domain.Item, bool, error)
	// FindRun returns nil when no run exists for the docker object.
	FindRun(ctx context.Context, jobName string, runType domain.RunType, dockerID string) (*domain.Run, error)
	// CreateRun assigns the next run number of the job and stores the run.
	// When a run for the same docker object already exists it is returned instead.
	CreateRun(ctx context.Context, run domain.Run) (domain.Run, error)
	ListRuns(ctx context.Context, jobName string) ([]domain.Run, error)
	Close() error
}
