package job

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/host"
	"github.com/rs/zerolog"
)

const (
	Kind        = domain.ItemKindBuildReferenceJob
	DefaultName = "docker-traceability"
)

type Store interface {
	LoadOrCreateItem(ctx context.Context, item domain.Item) (domain.Item, bool, error)
	FindRun(ctx context.Context, jobName string, runType domain.RunType, dockerID string) (*domain.Run, error)
	CreateRun(ctx context.Context, run domain.Run) (domain.Run, error)
	ListRuns(ctx context.Context, jobName string) ([]domain.Run, error)
}

type registry interface {
	PutItem(item host.Item) (host.Item, error)
}

// BuildReferenceJob owns the reference runs of every docker container and
// image seen by this service.
type BuildReferenceJob struct {
	name    string
	created time.Time
	store   Store
	logger  zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

func newJob(item domain.Item, store Store, logger zerolog.Logger) *BuildReferenceJob {
	return &BuildReferenceJob{
		name:    item.Name,
		created: item.Created,
		store:   store,
		logger:  logger.With().Str("job", item.Name).Logger(),
		now:     time.Now,
	}
}

// LoadJob loads the job named name from storage, creating it when absent, and
// registers it with the host. The instance held by the host is returned, so
// repeated calls yield the same job.
func LoadJob(ctx context.Context, reg registry, store Store, name string, logger zerolog.Logger) (*BuildReferenceJob, error) {
	item, created, err := store.LoadOrCreateItem(ctx, domain.Item{
		Name:    name,
		Kind:    Kind,
		Created: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("load job %q: %w", name, err)
	}
	if item.Kind != Kind {
		return nil, domain.NewItemConflictError(name, item.Kind, Kind)
	}
	if created {
		logger.Info().Msgf("Created reference job %s", name)
	}

	registered, err := reg.PutItem(newJob(item, store, logger))
	if err != nil {
		return nil, err
	}
	j, ok := registered.(*BuildReferenceJob)
	if !ok {
		return nil, domain.NewItemConflictError(name, registered.ItemKind(), Kind)
	}
	return j, nil
}

// NewDecoder returns the host decoder for persisted reference jobs.
func NewDecoder(store Store, logger zerolog.Logger) host.Decoder {
	return func(item domain.Item) (host.Item, error) {
		if item.Kind != Kind {
			return nil, fmt.Errorf("cannot decode item %q of kind %q as a reference job", item.Name, item.Kind)
		}
		return newJob(item, store, logger), nil
	}
}

func (j *BuildReferenceJob) ItemName() string          { return j.name }
func (j *BuildReferenceJob) ItemKind() domain.ItemKind { return Kind }
func (j *BuildReferenceJob) Created() time.Time        { return j.created }

// ForDockerItem returns the run recorded for the docker object, creating it on
// first sight.
func (j *BuildReferenceJob) ForDockerItem(ctx context.Context, dockerID, name string, runType domain.RunType, timestamp time.Time) (domain.Run, error) {
	dockerID = strings.TrimSpace(dockerID)
	if dockerID == "" {
		return domain.Run{}, fmt.Errorf("docker id must not be empty")
	}
	if !runType.IsValid() {
		return domain.Run{}, fmt.Errorf("invalid run type %q", runType)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	existing, err := j.store.FindRun(ctx, j.name, runType, dockerID)
	if err != nil {
		return domain.Run{}, err
	}
	if existing != nil {
		j.logger.Debug().Msgf("Reusing run %s", existing.Render())
		return *existing, nil
	}

	run, err := j.store.CreateRun(ctx, domain.Run{
		JobName:   j.name,
		Type:      runType,
		DockerID:  dockerID,
		Name:      name,
		Timestamp: timestamp,
		Recorded:  j.now(),
	})
	if err != nil {
		return domain.Run{}, fmt.Errorf("record run for %s: %w", domain.RunKey(runType, dockerID), err)
	}
	j.logger.Info().Msgf("Recorded run %s", run.Render())
	return run, nil
}

func (j *BuildReferenceJob) Runs(ctx context.Context) ([]domain.Run, error) {
	return j.store.ListRuns(ctx, j.name)
}
