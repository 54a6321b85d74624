package event

import (
	"context"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/rs/zerolog"
)

type Options struct {
	WatchContainers bool
	WatchImages     bool
	BufferSize      int
}

type DockerGenerator struct {
	logger zerolog.Logger
	cli    dockerClient
	opts   Options
}

func NewDockerGenerator(cli dockerClient, opts Options, logger zerolog.Logger) *DockerGenerator {
	return &DockerGenerator{
		logger: logger,
		cli:    cli,
		opts:   opts,
	}
}

func (dg *DockerGenerator) filters() filters.Args {
	filterArgs := filters.NewArgs()
	if dg.opts.WatchContainers {
		filterArgs.Add("type", string(events.ContainerEventType))
		filterArgs.Add("event", string(events.ActionCreate))
		filterArgs.Add("event", string(events.ActionStart))
	}
	if dg.opts.WatchImages {
		filterArgs.Add("type", string(events.ImageEventType))
		filterArgs.Add("event", string(events.ActionPull))
		filterArgs.Add("event", string(events.ActionTag))
		filterArgs.Add("event", string(events.ActionLoad))
		filterArgs.Add("event", string(events.ActionImport))
	}
	return filterArgs
}

// Subscribe emits the containers and images already present, followed by the
// live docker events. The channel is closed when ctx is done or the docker
// event stream ends.
func (dg *DockerGenerator) Subscribe(ctx context.Context) (<-chan domain.DockerEvent, error) {
	out := make(chan domain.DockerEvent, dg.opts.BufferSize)

	if !dg.opts.WatchContainers && !dg.opts.WatchImages {
		dg.logger.Warn().Msg("Neither containers nor images are watched")
		close(out)
		return out, nil
	}

	go func() {
		defer close(out)

		since := time.Now()

		emit := func(ev domain.DockerEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				dg.logger.Info().Msg("Docker event generator cancelled during initial emit")
				return false
			}
		}

		if dg.opts.WatchContainers {
			containers, err := dg.cli.ContainerList(ctx, container.ListOptions{All: true})
			if err != nil {
				dg.logger.Error().Err(err).Msg("getting list of containers")
				return
			}
			for _, c := range containers {
				if !emit(fromContainerSummary(c)) {
					return
				}
			}
		}

		if dg.opts.WatchImages {
			images, err := dg.cli.ImageList(ctx, image.ListOptions{})
			if err != nil {
				dg.logger.Error().Err(err).Msg("getting list of images")
				return
			}
			for _, img := range images {
				if !emit(fromImageSummary(img)) {
					return
				}
			}
		}

		options := events.ListOptions{
			Filters: dg.filters(),
			Since:   since.Format(time.RFC3339Nano),
		}
		eventCh, errCh := dg.cli.Events(ctx, options)

		for {
			select {
			case <-ctx.Done():
				dg.logger.Info().Msg("Docker event generator cancelled by context")
				return
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				if err != nil {
					dg.logger.Error().Err(err).Msg("Error from Docker events stream")
					return
				}
			case msg, ok := <-eventCh:
				if !ok {
					dg.logger.Info().Msg("Docker events channel closed")
					return
				}

				ev, convErr := fromEventsMessage(msg)
				if convErr != nil {
					if _, ok := convErr.(*UnsupportedEventError); ok {
						dg.logger.Debug().Err(convErr).Msg("Skipping docker event")
					} else {
						dg.logger.Error().Err(convErr).Msg("converting docker event message")
					}
					continue
				}

				dg.logger.Debug().Msgf("Received Docker event: %+v", ev)
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
