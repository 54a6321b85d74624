package domain

import "time"

type EventAction string

const (
	EventActionCreate           EventAction = "create"
	EventActionStart            EventAction = "start"
	EventActionPull             EventAction = "pull"
	EventActionTag              EventAction = "tag"
	EventActionLoad             EventAction = "load"
	EventActionImport           EventAction = "import"
	EventActionInitialDetection EventAction = "initial_detection"
)

func (a EventAction) IsValid() bool {
	switch a {
	case EventActionCreate,
		EventActionStart,
		EventActionPull,
		EventActionTag,
		EventActionLoad,
		EventActionImport,
		EventActionInitialDetection:
		return true
	}
	return false
}

// DockerEvent is a container or image observation coming from the docker daemon.
type DockerEvent struct {
	Type      RunType
	ID        string
	Name      string
	Action    EventAction
	Timestamp time.Time
}
