package event

import (
	"strings"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/image"
)

func fromContainerSummary(c container.Summary) domain.DockerEvent {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return domain.DockerEvent{
		Type:      domain.RunTypeContainer,
		ID:        c.ID,
		Name:      name,
		Action:    domain.EventActionInitialDetection,
		Timestamp: time.Unix(c.Created, 0),
	}
}

func fromImageSummary(img image.Summary) domain.DockerEvent {
	name := ""
	for _, tag := range img.RepoTags {
		if tag != "" && tag != "<none>:<none>" {
			name = tag
			break
		}
	}
	return domain.DockerEvent{
		Type:      domain.RunTypeImage,
		ID:        img.ID,
		Name:      name,
		Action:    domain.EventActionInitialDetection,
		Timestamp: time.Unix(img.Created, 0),
	}
}

func fromEventsMessage(msg events.Message) (domain.DockerEvent, error) {
	var runType domain.RunType
	switch msg.Type {
	case events.ContainerEventType:
		runType = domain.RunTypeContainer
	case events.ImageEventType:
		runType = domain.RunTypeImage
	default:
		return domain.DockerEvent{}, NewUnsupportedEventError(msg.Type, msg.Action)
	}

	action := domain.EventAction(msg.Action)
	if !action.IsValid() || action == domain.EventActionInitialDetection {
		return domain.DockerEvent{}, NewUnsupportedEventError(msg.Type, msg.Action)
	}

	return domain.DockerEvent{
		Type:      runType,
		ID:        msg.Actor.ID,
		Name:      strings.TrimPrefix(msg.Actor.Attributes["name"], "/"),
		Action:    action,
		Timestamp: time.Unix(0, msg.TimeNano),
	}, nil
}
