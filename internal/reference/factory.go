package reference

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/host"
	"github.com/auto-dns/docker-traceability/internal/job"
	"github.com/rs/zerolog"
)

// ErrHostNotReady is returned when the factory is used before the host has
// loaded. It is not retryable.
var ErrHostNotReady = errors.New("host environment is not ready")

type hostEnvironment interface {
	Ready() bool
	GetItem(name string) host.Item
	PutItem(item host.Item) (host.Item, error)
}

type lifecycle interface {
	OnLoaded(hook host.Hook)
}

// Factory produces reference runs for docker containers and images.
type Factory struct {
	logger  zerolog.Logger
	host    hostEnvironment
	store   job.Store
	jobName string

	mu sync.Mutex
}

func NewFactory(h hostEnvironment, store job.Store, jobName string, logger zerolog.Logger) *Factory {
	return &Factory{
		logger:  logger,
		host:    h,
		store:   store,
		jobName: jobName,
	}
}

func (f *Factory) ForContainer(ctx context.Context, containerID, name string, timestamp time.Time) (domain.Run, error) {
	return f.forDockerItem(ctx, containerID, name, domain.RunTypeContainer, timestamp)
}

func (f *Factory) ForImage(ctx context.Context, imageID, name string, timestamp time.Time) (domain.Run, error) {
	return f.forDockerItem(ctx, imageID, name, domain.RunTypeImage, timestamp)
}

func (f *Factory) forDockerItem(ctx context.Context, dockerID, name string, runType domain.RunType, timestamp time.Time) (domain.Run, error) {
	refJob, err := f.GetOrCreateJob(ctx)
	if err != nil {
		return domain.Run{}, err
	}
	return refJob.ForDockerItem(ctx, dockerID, name, runType, timestamp)
}

// GetOrCreateJob returns the reference job registered with the host, loading
// or creating it on first use. Only the creation path is serialized.
func (f *Factory) GetOrCreateJob(ctx context.Context) (*job.BuildReferenceJob, error) {
	if f.host == nil || !f.host.Ready() {
		return nil, ErrHostNotReady
	}

	item := f.host.GetItem(f.jobName)
	if refJob, ok := item.(*job.BuildReferenceJob); ok {
		return refJob, nil
	}
	if item != nil {
		return nil, domain.NewItemConflictError(f.jobName, item.ItemKind(), job.Kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger.Debug().Msg("Loading docker build references")
	return job.LoadJob(ctx, f.host, f.store, f.jobName, f.logger)
}

// RegisterStartupHook pre-warms the reference job once the host has loaded.
// Failures are logged, not returned.
func (f *Factory) RegisterStartupHook(lc lifecycle) {
	lc.OnLoaded(func(ctx context.Context) {
		if _, err := f.GetOrCreateJob(ctx); err != nil {
			f.logger.Error().Err(err).Msgf("Cannot initialize reference job %s", f.jobName)
			return
		}
		f.logger.Info().Msgf("Reference job %s is ready", f.jobName)
	})
}
