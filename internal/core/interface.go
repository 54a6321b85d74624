package core

import (
	"context"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

type generator interface {
	Subscribe(ctx context.Context) (<-chan domain.DockerEvent, error)
}

type runRecorder interface {
	ForContainer(ctx context.Context, containerID, name string, timestamp time.Time) (domain.Run, error)
	ForImage(ctx context.Context, imageID, name string, timestamp time.Time) (domain.Run, error)
}
