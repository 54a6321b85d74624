package app

import (
	"context"
	"fmt"
	"time"

	"github.com/auto-dns/docker-traceability/internal/config"
	"github.com/auto-dns/docker-traceability/internal/core"
	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/event"
	"github.com/auto-dns/docker-traceability/internal/host"
	"github.com/auto-dns/docker-traceability/internal/job"
	"github.com/auto-dns/docker-traceability/internal/reference"
	"github.com/auto-dns/docker-traceability/internal/store"
	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type App struct {
	cfg          *config.Config
	dockerClient *dockerCli.Client
	store        store.Store
	host         *host.Host
	factory      *reference.Factory
	tracker      *core.Tracker
	logger       zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	st, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	h := host.New(st, logger)
	h.RegisterKind(job.Kind, job.NewDecoder(st, logger))
	factory := reference.NewFactory(h, st, cfg.App.JobName, logger)
	factory.RegisterStartupHook(h)

	return &App{
		cfg:     cfg,
		store:   st,
		host:    h,
		factory: factory,
		logger:  logger,
	}, nil
}

func newStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.App.Storage {
	case config.StorageMemory:
		logger.Warn().Msg("Using in-memory storage, references are lost on exit")
		return store.NewMemoryStore(), nil
	case config.StorageEtcd:
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: time.Duration(cfg.Etcd.DialTimeout * float64(time.Second)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		return store.NewEtcdStore(etcdClient, &cfg.Etcd, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.App.Storage)
	}
}

func (a *App) load(ctx context.Context) error {
	if a.host.Ready() {
		return nil
	}
	return a.host.Load(ctx)
}

// Run loads the host and records docker observations until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")

	dockerClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	a.dockerClient = dockerClient

	if err := a.load(ctx); err != nil {
		return err
	}

	gen := event.NewDockerGenerator(dockerClient, event.Options{
		WatchContainers: a.cfg.App.WatchContainers,
		WatchImages:     a.cfg.App.WatchImages,
		BufferSize:      a.cfg.App.EventBuffer,
	}, a.logger)
	a.tracker = core.NewTracker(a.logger, gen, a.factory)
	return a.tracker.Run(ctx)
}

// Record records a single docker object outside of watch mode.
func (a *App) Record(ctx context.Context, runType domain.RunType, dockerID, name string, timestamp time.Time) (domain.Run, error) {
	if err := a.load(ctx); err != nil {
		return domain.Run{}, err
	}
	switch runType {
	case domain.RunTypeContainer:
		return a.factory.ForContainer(ctx, dockerID, name, timestamp)
	case domain.RunTypeImage:
		return a.factory.ForImage(ctx, dockerID, name, timestamp)
	default:
		return domain.Run{}, fmt.Errorf("invalid run type %q", runType)
	}
}

// ListRuns returns every run of the reference job.
func (a *App) ListRuns(ctx context.Context) ([]domain.Run, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	refJob, err := a.factory.GetOrCreateJob(ctx)
	if err != nil {
		return nil, err
	}
	return refJob.Runs(ctx)
}

func (a *App) Close() error {
	var firstErr error
	if a.dockerClient != nil {
		if err := a.dockerClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close docker client: %w", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
	}
	return firstErr
}
