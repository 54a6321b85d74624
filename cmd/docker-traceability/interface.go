package main

import (
	"context"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

type application interface {
	Run(ctx context.Context) error
	Record(ctx context.Context, runType domain.RunType, dockerID, name string, timestamp time.Time) (domain.Run, error)
	ListRuns(ctx context.Context) ([]domain.Run, error)
	Close() error
}
