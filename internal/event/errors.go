package event

import (
	"fmt"

	"github.com/docker/docker/api/types/events"
)

type UnsupportedEventError struct {
	eventType events.Type
	action    events.Action
}

func NewUnsupportedEventError(eventType events.Type, action events.Action) *UnsupportedEventError {
	return &UnsupportedEventError{eventType: eventType, action: action}
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("Unsupported event: %s %s", e.eventType, e.action)
}
