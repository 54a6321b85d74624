package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/reference"
	"github.com/rs/zerolog"
)

// ErrEventStreamClosed is returned by Run when the event stream ends while
// the context is still live.
var ErrEventStreamClosed = errors.New("docker event stream closed")

// Tracker records a reference run for every docker observation.
type Tracker struct {
	logger    zerolog.Logger
	generator generator
	recorder  runRecorder

	recorded atomic.Int64
	failed   atomic.Int64
}

type Stats struct {
	Recorded int64
	Failed   int64
}

func NewTracker(logger zerolog.Logger, gen generator, recorder runRecorder) *Tracker {
	return &Tracker{
		logger:    logger,
		generator: gen,
		recorder:  recorder,
	}
}

func (t *Tracker) Stats() Stats {
	return Stats{Recorded: t.recorded.Load(), Failed: t.failed.Load()}
}

func (t *Tracker) handleEvent(ctx context.Context, ev domain.DockerEvent) error {
	if ev.ID == "" {
		return nil
	}

	var (
		run domain.Run
		err error
	)
	switch ev.Type {
	case domain.RunTypeContainer:
		run, err = t.recorder.ForContainer(ctx, ev.ID, ev.Name, ev.Timestamp)
	case domain.RunTypeImage:
		run, err = t.recorder.ForImage(ctx, ev.ID, ev.Name, ev.Timestamp)
	default:
		t.logger.Debug().Msgf("Ignoring event of type %q", ev.Type)
		return nil
	}
	if err != nil {
		t.failed.Add(1)
		if errors.Is(err, reference.ErrHostNotReady) {
			return err
		}
		t.logger.Error().Err(err).Msgf("Error recording %s %s", ev.Type, domain.ShortID(ev.ID))
		return nil
	}

	t.recorded.Add(1)
	t.logger.Debug().Msgf("Recorded %s on %s: %s", ev.Action, ev.Type, run.Render())
	return nil
}

// Run consumes docker events until ctx is done or the event stream ends.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info().Msg("Starting Tracker")

	eventCh, err := t.generator.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("Failed to subscribe to Docker events: %w", err)
	}

	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				if err := ctx.Err(); err != nil {
					t.logger.Info().Msg("Event channel closed")
					return err
				}
				t.logger.Error().Msg("Event channel closed while tracker is still running")
				return ErrEventStreamClosed
			}
			if err := t.handleEvent(ctx, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			stats := t.Stats()
			t.logger.Info().Msgf("Tracker shutting down (recorded=%d, failed=%d)", stats.Recorded, stats.Failed)
			return ctx.Err()
		}
	}
}
